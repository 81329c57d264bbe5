package tijori

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

func noOpenDispute() error {
	return apierror.NewAPIError(apierror.ErrNotFound, "no open dispute", nil)
}

func TestOpenDispute(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	milestoneID := escrow.Milestones[1].MilestoneID

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("GetOpenDispute", mock.Anything, escrow.EscrowID).Return(nil, noOpenDispute())
	datasource.On("RecordDispute", mock.Anything, mock.Anything).Return(&model.Dispute{}, nil)
	datasource.On("UpdateEscrowStatus", mock.Anything, escrow).Return(nil)

	dispute, err := engine.OpenDispute(context.Background(), escrow.EscrowID, milestoneID, escrow.BuyerRef, "goods not delivered", "second milestone never shipped")
	assert.NoError(t, err)
	assert.Equal(t, model.DisputeOpen, dispute.Status)
	assert.Equal(t, milestoneID, dispute.MilestoneID)
	assert.Equal(t, model.EscrowDisputed, escrow.Status)
	datasource.AssertExpectations(t)
}

func TestOpenDispute_AlreadyOpen(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	existing := model.NewDispute(escrow.EscrowID, "", escrow.BuyerRef, "quality", "")

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("GetOpenDispute", mock.Anything, escrow.EscrowID).Return(existing, nil)

	_, err := engine.OpenDispute(context.Background(), escrow.EscrowID, "", escrow.BuyerRef, "another", "")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrDisputeAlreadyOpen, apiErr.Code)
	details := apiErr.Details.(map[string]interface{})
	assert.Equal(t, existing.DisputeID, details["dispute_id"])
	datasource.AssertNotCalled(t, "RecordDispute", mock.Anything, mock.Anything)
}

func TestOpenDispute_UnknownMilestone(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("GetOpenDispute", mock.Anything, escrow.EscrowID).Return(nil, noOpenDispute())

	_, err := engine.OpenDispute(context.Background(), escrow.EscrowID, "mls_missing", escrow.BuyerRef, "quality", "")
	assert.Error(t, err)
	assert.Equal(t, model.EscrowActive, escrow.Status)
}

func TestOpenDispute_InactiveEscrow(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("GetOpenDispute", mock.Anything, escrow.EscrowID).Return(nil, noOpenDispute())

	_, err := engine.OpenDispute(context.Background(), escrow.EscrowID, "", escrow.BuyerRef, "quality", "")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidEscrowState, apiErr.Code)
}

func TestBeginDisputeReview(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	dispute := model.NewDispute("esc_1", "", "buyer_1", "quality", "")

	datasource.On("GetDispute", mock.Anything, dispute.DisputeID).Return(dispute, nil)
	datasource.On("UpdateDispute", mock.Anything, dispute).Return(nil)

	reviewed, err := engine.BeginDisputeReview(context.Background(), dispute.DisputeID)
	assert.NoError(t, err)
	assert.Equal(t, model.DisputeUnderReview, reviewed.Status)
}

func TestResolveDispute_Resume(t *testing.T) {
	engine, datasource, ledger, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	assert.NoError(t, escrow.MarkDisputed())
	dispute := model.NewDispute(escrow.EscrowID, "", escrow.BuyerRef, "quality", "")

	datasource.On("GetDispute", mock.Anything, dispute.DisputeID).Return(dispute, nil)
	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("UpdateDispute", mock.Anything, dispute).Return(nil)
	datasource.On("UpdateEscrowStatus", mock.Anything, escrow).Return(nil)

	resolved, err := engine.ResolveDispute(context.Background(), dispute.DisputeID, model.DisputeOutcomeResume, "parties agreed")
	assert.NoError(t, err)
	assert.Equal(t, model.DisputeResolved, resolved.Status)
	assert.Equal(t, model.DisputeOutcomeResume, resolved.Outcome)
	assert.Equal(t, model.EscrowActive, escrow.Status)
	assert.Empty(t, ledger.Movements, "resume moves no funds")
}

func TestResolveDispute_CancelRefundsBuyer(t *testing.T) {
	engine, datasource, ledger, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	assert.NoError(t, escrow.MarkDisputed())
	dispute := model.NewDispute(escrow.EscrowID, "", escrow.BuyerRef, "quality", "")
	refund := escrow.TotalAmount

	datasource.On("GetDispute", mock.Anything, dispute.DisputeID).Return(dispute, nil)
	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("UpdateDispute", mock.Anything, dispute).Return(nil)
	datasource.On("UpdateEscrowStatus", mock.Anything, escrow).Return(nil)

	resolved, err := engine.ResolveDispute(context.Background(), dispute.DisputeID, model.DisputeOutcomeCancel, "refund the buyer")
	assert.NoError(t, err)
	assert.Equal(t, model.DisputeOutcomeCancel, resolved.Outcome)
	assert.Equal(t, model.EscrowCancelled, escrow.Status)

	assert.Equal(t, []LedgerMovement{
		{Op: "debit", WalletRef: escrowWalletRef(escrow.EscrowID), Amount: refund, IdempotencyKey: escrow.EscrowID + "-refund-debit"},
		{Op: "credit", WalletRef: escrow.BuyerRef, Amount: refund, IdempotencyKey: escrow.EscrowID + "-refund-credit"},
	}, ledger.Movements)
}

func TestResolveDispute_UnknownOutcome(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	assert.NoError(t, escrow.MarkDisputed())
	dispute := model.NewDispute(escrow.EscrowID, "", escrow.BuyerRef, "quality", "")

	datasource.On("GetDispute", mock.Anything, dispute.DisputeID).Return(dispute, nil)
	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)

	_, err := engine.ResolveDispute(context.Background(), dispute.DisputeID, model.DisputeOutcome("split"), "")
	assert.Error(t, err)
	datasource.AssertNotCalled(t, "UpdateDispute", mock.Anything, mock.Anything)
}
