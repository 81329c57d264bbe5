package tijori

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

func TestMilestoneLifecycleThroughEngine(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	milestoneID := escrow.Milestones[0].MilestoneID

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)
	datasource.On("UpdateMilestone", mock.Anything, escrow.Milestones[0]).Return(nil)

	milestone, err := engine.StartMilestone(context.Background(), escrow.EscrowID, milestoneID)
	assert.NoError(t, err)
	assert.Equal(t, model.MilestoneInProgress, milestone.Status)

	milestone, err = engine.RecordConfirmation(context.Background(), escrow.EscrowID, milestoneID, "doc://proof-of-delivery")
	assert.NoError(t, err)
	assert.Equal(t, model.MilestoneCompleted, milestone.Status)
	assert.Equal(t, []string{"doc://proof-of-delivery"}, milestone.Evidence)

	milestone, err = engine.ApproveMilestone(context.Background(), escrow.EscrowID, milestoneID)
	assert.NoError(t, err)
	assert.Equal(t, model.MilestoneApproved, milestone.Status)
	datasource.AssertNumberOfCalls(t, "UpdateMilestone", 3)
}

func TestMilestoneProgressionFrozenOffActive(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	assert.NoError(t, escrow.MarkDisputed())
	milestoneID := escrow.Milestones[0].MilestoneID

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)

	_, err := engine.StartMilestone(context.Background(), escrow.EscrowID, milestoneID)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidEscrowState, apiErr.Code)

	_, err = engine.RecordConfirmation(context.Background(), escrow.EscrowID, milestoneID, "")
	assert.Error(t, err)
	_, err = engine.ApproveMilestone(context.Background(), escrow.EscrowID, milestoneID)
	assert.Error(t, err)
	datasource.AssertNotCalled(t, "UpdateMilestone", mock.Anything, mock.Anything)
}

func TestApproveMilestone_RequiresQuorum(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())
	milestone := escrow.Milestones[0]
	assert.NoError(t, milestone.Start())

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)

	_, err := engine.ApproveMilestone(context.Background(), escrow.EscrowID, milestone.MilestoneID)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidMilestoneTransition, apiErr.Code)
}

func TestStartMilestone_UnknownMilestone(t *testing.T) {
	engine, datasource, _, _ := newTestEngine(t)
	escrow := pendingEscrow(t, 60000000)
	assert.NoError(t, escrow.Fund())

	datasource.On("GetEscrow", mock.Anything, escrow.EscrowID).Return(escrow, nil)

	_, err := engine.StartMilestone(context.Background(), escrow.EscrowID, "mls_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}
