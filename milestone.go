package tijori

import (
	"context"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

func activeEscrowOnly(escrow *model.Escrow, attempted string) error {
	if escrow.Status == model.EscrowActive {
		return nil
	}
	return apierror.NewAPIError(apierror.ErrInvalidEscrowState,
		"milestones can only progress while the escrow is active",
		map[string]interface{}{
			"escrow_id": escrow.EscrowID,
			"status":    escrow.Status,
			"attempted": attempted,
		})
}

// StartMilestone moves a pending milestone to in_progress. Milestone
// progression is frozen whenever the escrow is not active, which is how
// an open dispute stops all work.
func (l *Tijori) StartMilestone(ctx context.Context, escrowID, milestoneID string) (*model.Milestone, error) {
	ctx, span := tracer.Start(ctx, "Starting milestone")
	defer span.End()

	locker, err := l.lockEscrow(ctx, escrowID)
	if err != nil {
		return nil, logAndRecordError(span, "acquiring escrow lock error: ", err)
	}
	defer unlock(ctx, locker)

	escrow, err := l.datasource.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := activeEscrowOnly(escrow, "start milestone"); err != nil {
		span.RecordError(err)
		return nil, err
	}

	milestone, err := escrow.Milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if err := milestone.Start(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := l.datasource.UpdateMilestone(ctx, milestone); err != nil {
		return nil, logAndRecordError(span, "saving milestone to db error: ", err)
	}
	return milestone, nil
}

// RecordConfirmation counts one confirmation toward the milestone's
// quorum, attaching the evidence reference when given. The milestone
// auto-completes once the quorum is met; further confirmations are
// accepted as no-ops.
func (l *Tijori) RecordConfirmation(ctx context.Context, escrowID, milestoneID, evidenceRef string) (*model.Milestone, error) {
	ctx, span := tracer.Start(ctx, "Recording milestone confirmation")
	defer span.End()

	locker, err := l.lockEscrow(ctx, escrowID)
	if err != nil {
		return nil, logAndRecordError(span, "acquiring escrow lock error: ", err)
	}
	defer unlock(ctx, locker)

	escrow, err := l.datasource.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := activeEscrowOnly(escrow, "confirm milestone"); err != nil {
		span.RecordError(err)
		return nil, err
	}

	milestone, err := escrow.Milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if _, err := milestone.RecordConfirmation(evidenceRef); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := l.datasource.UpdateMilestone(ctx, milestone); err != nil {
		return nil, logAndRecordError(span, "saving milestone to db error: ", err)
	}
	return milestone, nil
}

// ApproveMilestone finalizes a completed milestone and reports the
// escrow's updated progress over the webhook channel.
func (l *Tijori) ApproveMilestone(ctx context.Context, escrowID, milestoneID string) (*model.Milestone, error) {
	ctx, span := tracer.Start(ctx, "Approving milestone")
	defer span.End()

	locker, err := l.lockEscrow(ctx, escrowID)
	if err != nil {
		return nil, logAndRecordError(span, "acquiring escrow lock error: ", err)
	}
	defer unlock(ctx, locker)

	escrow, err := l.datasource.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := activeEscrowOnly(escrow, "approve milestone"); err != nil {
		span.RecordError(err)
		return nil, err
	}

	milestone, err := escrow.Milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if err := milestone.Approve(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := l.datasource.UpdateMilestone(ctx, milestone); err != nil {
		return nil, logAndRecordError(span, "saving milestone to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event: model.EventMilestoneApproved,
		Payload: model.NewDomainEvent(model.EventMilestoneApproved, milestone.MilestoneID, string(model.MilestoneCompleted), string(model.MilestoneApproved), map[string]interface{}{
			"escrow_id": escrow.EscrowID,
			"amount":    milestone.Amount,
			"progress":  escrow.Progress(),
		}),
	})
	return milestone, nil
}
