package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDispute(t *testing.T) {
	dispute := NewDispute("esc_1", "mls_1", "buyer_1", "goods not delivered", "second milestone never shipped")
	assert.Contains(t, dispute.DisputeID, "dsp_")
	assert.Equal(t, DisputeOpen, dispute.Status)
	assert.Equal(t, "esc_1", dispute.EscrowID)
	assert.Equal(t, "mls_1", dispute.MilestoneID)
	assert.Nil(t, dispute.ResolvedAt)
}

func TestDispute_BeginReview(t *testing.T) {
	dispute := NewDispute("esc_1", "", "buyer_1", "quality", "")
	assert.NoError(t, dispute.BeginReview())
	assert.Equal(t, DisputeUnderReview, dispute.Status)
	assert.Error(t, dispute.BeginReview(), "review can only start once")
}

func TestDispute_ResolveFromOpen(t *testing.T) {
	dispute := NewDispute("esc_1", "", "buyer_1", "quality", "")
	assert.NoError(t, dispute.Resolve(DisputeOutcomeResume, "parties agreed"))
	assert.Equal(t, DisputeResolved, dispute.Status)
	assert.Equal(t, DisputeOutcomeResume, dispute.Outcome)
	assert.Equal(t, "parties agreed", dispute.Note)
	assert.NotNil(t, dispute.ResolvedAt)
}

func TestDispute_ResolveFromReview(t *testing.T) {
	dispute := NewDispute("esc_1", "", "buyer_1", "quality", "")
	assert.NoError(t, dispute.BeginReview())
	assert.NoError(t, dispute.Resolve(DisputeOutcomeCancel, "refund the buyer"))
	assert.Equal(t, DisputeOutcomeCancel, dispute.Outcome)
}

func TestDispute_ResolveGuards(t *testing.T) {
	dispute := NewDispute("esc_1", "", "buyer_1", "quality", "")
	assert.Error(t, dispute.Resolve(DisputeOutcome("split"), ""), "unknown outcome rejected")

	assert.NoError(t, dispute.Resolve(DisputeOutcomeResume, ""))
	assert.Error(t, dispute.Resolve(DisputeOutcomeCancel, ""), "resolved dispute is final")
}
