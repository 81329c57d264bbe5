package model

import (
	"fmt"
	"time"

	"github.com/bell24h/tijori/internal/apierror"
)

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
)

type DisputeOutcome string

const (
	DisputeOutcomeResume DisputeOutcome = "resume"
	DisputeOutcomeCancel DisputeOutcome = "cancel"
)

// Dispute is a contestation record against an escrow, optionally
// scoped to a single milestone. An escrow carries at most one open
// dispute at a time.
type Dispute struct {
	ID          int64          `json:"-"`
	DisputeID   string         `json:"dispute_id"`
	EscrowID    string         `json:"escrow_id"`
	MilestoneID string         `json:"milestone_id,omitempty"`
	RaisedBy    string         `json:"raised_by"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      DisputeStatus  `json:"status"`
	Outcome     DisputeOutcome `json:"outcome,omitempty"`
	Note        string         `json:"note,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// NewDispute opens a dispute record against an escrow.
func NewDispute(escrowID, milestoneID, raisedBy, title, description string) *Dispute {
	return &Dispute{
		DisputeID:   GenerateUUIDWithSuffix("dsp"),
		EscrowID:    escrowID,
		MilestoneID: milestoneID,
		RaisedBy:    raisedBy,
		Title:       title,
		Description: description,
		Status:      DisputeOpen,
		CreatedAt:   time.Now(),
	}
}

// BeginReview moves an open dispute under review.
func (d *Dispute) BeginReview() error {
	if d.Status != DisputeOpen {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("cannot review dispute in status '%s'", d.Status),
			map[string]interface{}{"dispute_id": d.DisputeID, "status": d.Status})
	}
	d.Status = DisputeUnderReview
	return nil
}

// Resolve closes the dispute with an outcome. Only open or
// under_review disputes can be resolved.
func (d *Dispute) Resolve(outcome DisputeOutcome, note string) error {
	if d.Status != DisputeOpen && d.Status != DisputeUnderReview {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("cannot resolve dispute in status '%s'", d.Status),
			map[string]interface{}{"dispute_id": d.DisputeID, "status": d.Status})
	}
	if outcome != DisputeOutcomeResume && outcome != DisputeOutcomeCancel {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("unknown dispute outcome '%s'", outcome), nil)
	}
	now := time.Now()
	d.Status = DisputeResolved
	d.Outcome = outcome
	d.Note = note
	d.ResolvedAt = &now
	return nil
}
