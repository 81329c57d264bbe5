/*
Copyright 2025 Tijori Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/bell24h/tijori/api/model"
	"github.com/bell24h/tijori/model"
)

// SubmitTransaction routes a transaction for settlement. The response
// carries the routing decision: chosen path, fee estimate and the
// threshold that drove the choice.
func (a Api) SubmitTransaction(c *gin.Context) {
	var newTransaction model2.SubmitTransaction
	if err := c.ShouldBindJSON(&newTransaction); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newTransaction.ValidateSubmitTransaction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.tijori.SubmitTransaction(c.Request.Context(), newTransaction.ToTransaction(), newTransaction.ToMilestoneSpecs())
	if err != nil {
		logrus.Error(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetTransaction fetches a transaction by ID.
func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.tijori.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// QuoteFees previews the fee breakdown for an amount, tier and path
// without touching any state.
func (a Api) QuoteFees(c *gin.Context) {
	var quote model2.FeeQuote
	if err := c.ShouldBindJSON(&quote); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := quote.ValidateFeeQuote(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	fees, err := model.ComputeFees(quote.Amount, model.Tier(quote.Tier), model.SettlementPath(quote.Path), a.tijori.FeeSchedule(), nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, fees)
}
