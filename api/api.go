package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bell24h/tijori"
	"github.com/bell24h/tijori/api/middleware"
	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/internal/apierror"
)

type Api struct {
	tijori *tijori.Tijori
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/transactions", a.SubmitTransaction)
	router.GET("/transactions/:id", a.GetTransaction)
	router.POST("/fees/quote", a.QuoteFees)

	router.GET("/transfers/:id", a.GetTransfer)
	router.POST("/transfers/:id/confirm", a.ConfirmTransfer)
	router.POST("/transfers/:id/cancel", a.CancelTransfer)

	router.GET("/escrows/:id", a.GetEscrow)
	router.GET("/escrows/:id/progress", a.GetEscrowProgress)
	router.POST("/escrows/:id/fund", a.FundEscrow)
	router.POST("/escrows/:id/release", a.ReleaseEscrow)

	router.POST("/escrows/:id/milestones/:milestone_id/start", a.StartMilestone)
	router.POST("/escrows/:id/milestones/:milestone_id/confirmations", a.RecordConfirmation)
	router.POST("/escrows/:id/milestones/:milestone_id/approve", a.ApproveMilestone)

	router.POST("/escrows/:id/disputes", a.OpenDispute)
	router.GET("/disputes/:id", a.GetDispute)
	router.POST("/disputes/:id/review", a.BeginDisputeReview)
	router.POST("/disputes/:id/resolve", a.ResolveDispute)

	return a.router
}

func NewAPI(t *tijori.Tijori) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{tijori: t, router: r}
}

// respondError maps a settlement error to its HTTP status and renders
// the structured error body.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code, "details": apiErr.Details})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
