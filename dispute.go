package tijori

import (
	"context"
	"fmt"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

// OpenDispute freezes an active escrow under a new dispute. The
// partial unique index on open disputes is the last line of defense;
// the pre-check here exists to return a clean error without burning an
// insert.
func (l *Tijori) OpenDispute(ctx context.Context, escrowID, milestoneID, raisedBy, title, description string) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Opening dispute")
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

	if open, err := l.datasource.GetOpenDispute(ctx, escrowID); err == nil {
		return nil, apierror.NewAPIError(apierror.ErrDisputeAlreadyOpen,
			fmt.Sprintf("escrow %s already has open dispute %s", escrowID, open.DisputeID),
			map[string]interface{}{"dispute_id": open.DisputeID})
	} else if apiErr, ok := err.(apierror.APIError); !ok || apiErr.Code != apierror.ErrNotFound {
		return nil, err
	}

	if milestoneID != "" {
		if _, err := escrow.Milestone(milestoneID); err != nil {
			return nil, err
		}
	}

	if err := escrow.MarkDisputed(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	dispute := model.NewDispute(escrowID, milestoneID, raisedBy, title, description)
	if _, err := l.datasource.RecordDispute(ctx, dispute); err != nil {
		return nil, logAndRecordError(span, "saving dispute to db error: ", err)
	}
	if err := l.datasource.UpdateEscrowStatus(ctx, escrow); err != nil {
		return nil, logAndRecordError(span, "saving escrow to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event: model.EventDisputeOpened,
		Payload: model.NewDomainEvent(model.EventDisputeOpened, dispute.DisputeID, string(model.EscrowActive), string(model.EscrowDisputed), map[string]interface{}{
			"escrow_id":    escrowID,
			"milestone_id": milestoneID,
			"raised_by":    raisedBy,
		}),
	})
	return dispute, nil
}

// BeginDisputeReview marks an open dispute as under review.
func (l *Tijori) BeginDisputeReview(ctx context.Context, disputeID string) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Reviewing dispute")
	defer span.End()

	dispute, err := l.datasource.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := dispute.BeginReview(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := l.datasource.UpdateDispute(ctx, dispute); err != nil {
		return nil, logAndRecordError(span, "saving dispute to db error: ", err)
	}
	return dispute, nil
}

// ResolveDispute closes a dispute and applies its outcome to the
// escrow: resume returns it to active, cancel terminates it and
// refunds the held funds to the buyer.
func (l *Tijori) ResolveDispute(ctx context.Context, disputeID string, outcome model.DisputeOutcome, note string) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Resolving dispute")
	defer span.End()

	dispute, err := l.datasource.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	locker, err := l.lockEscrow(ctx, dispute.EscrowID)
	if err != nil {
		return nil, logAndRecordError(span, "acquiring escrow lock error: ", err)
	}
	defer unlock(ctx, locker)

	escrow, err := l.datasource.GetEscrow(ctx, dispute.EscrowID)
	if err != nil {
		return nil, err
	}

	if err := dispute.Resolve(outcome, note); err != nil {
		span.RecordError(err)
		return nil, err
	}

	switch outcome {
	case model.DisputeOutcomeResume:
		if err := escrow.ResumeFromDispute(); err != nil {
			span.RecordError(err)
			return nil, err
		}
	case model.DisputeOutcomeCancel:
		if err := escrow.Cancel(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		refund := escrow.TotalAmount
		holding := escrowWalletRef(escrow.EscrowID)
		if err := executeLedger(ctx, func(opCtx context.Context) error {
			return l.ledger.Debit(opCtx, holding, refund, escrow.EscrowID+"-refund-debit")
		}); err != nil {
			return nil, err
		}
		if err := executeLedger(ctx, func(opCtx context.Context) error {
			return l.ledger.Credit(opCtx, escrow.BuyerRef, refund, escrow.EscrowID+"-refund-credit")
		}); err != nil {
			return nil, err
		}
	}

	if err := l.datasource.UpdateDispute(ctx, dispute); err != nil {
		return nil, logAndRecordError(span, "saving dispute to db error: ", err)
	}
	if err := l.datasource.UpdateEscrowStatus(ctx, escrow); err != nil {
		return nil, logAndRecordError(span, "saving escrow to db error: ", err)
	}

	to := model.EscrowActive
	if outcome == model.DisputeOutcomeCancel {
		to = model.EscrowCancelled
	}
	go l.SendWebhook(NewWebhook{
		Event: model.EventDisputeResolved,
		Payload: model.NewDomainEvent(model.EventDisputeResolved, dispute.DisputeID, string(model.EscrowDisputed), string(to), map[string]interface{}{
			"escrow_id": escrow.EscrowID,
			"outcome":   outcome,
			"note":      note,
		}),
	})
	if outcome == model.DisputeOutcomeCancel {
		go l.SendWebhook(NewWebhook{
			Event:   model.EventEscrowCancelled,
			Payload: model.NewDomainEvent(model.EventEscrowCancelled, escrow.EscrowID, string(model.EscrowDisputed), string(model.EscrowCancelled), map[string]interface{}{"refunded_amount": escrow.TotalAmount}),
		})
	}
	return dispute, nil
}

// GetDispute fetches a dispute by id.
func (l *Tijori) GetDispute(ctx context.Context, disputeID string) (*model.Dispute, error) {
	return l.datasource.GetDispute(ctx, disputeID)
}
