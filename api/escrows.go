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

	model2 "github.com/bell24h/tijori/api/model"
)

// GetEscrow fetches an escrow with its milestones.
func (a Api) GetEscrow(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.tijori.GetEscrow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetEscrowProgress reports the completion percentage of an escrow.
func (a Api) GetEscrowProgress(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	progress, err := a.tijori.EscrowProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrow_id": id, "progress": progress})
}

// FundEscrow debits the buyer and activates the escrow.
func (a Api) FundEscrow(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.tijori.FundEscrow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReleaseEscrow pays out a fully approved escrow.
func (a Api) ReleaseEscrow(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.tijori.ReleaseEscrow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StartMilestone moves a pending milestone to in_progress.
func (a Api) StartMilestone(c *gin.Context) {
	escrowID, milestoneID, ok := milestoneParams(c)
	if !ok {
		return
	}

	resp, err := a.tijori.StartMilestone(c.Request.Context(), escrowID, milestoneID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordConfirmation counts one confirmation toward the milestone's
// quorum.
func (a Api) RecordConfirmation(c *gin.Context) {
	escrowID, milestoneID, ok := milestoneParams(c)
	if !ok {
		return
	}

	var confirmation model2.RecordConfirmation
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&confirmation); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
	}

	resp, err := a.tijori.RecordConfirmation(c.Request.Context(), escrowID, milestoneID, confirmation.EvidenceRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ApproveMilestone finalizes a completed milestone.
func (a Api) ApproveMilestone(c *gin.Context) {
	escrowID, milestoneID, ok := milestoneParams(c)
	if !ok {
		return
	}

	resp, err := a.tijori.ApproveMilestone(c.Request.Context(), escrowID, milestoneID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func milestoneParams(c *gin.Context) (string, string, bool) {
	escrowID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return "", "", false
	}
	milestoneID, passed := c.Params.Get("milestone_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "milestone_id is required. pass id in the route /:milestone_id"})
		return "", "", false
	}
	return escrowID, milestoneID, true
}
