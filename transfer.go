package tijori

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

const feesWalletRef = "@fees"

// ConfirmTransfer moves a direct transfer out of validation and queues
// it for processing.
func (l *Tijori) ConfirmTransfer(ctx context.Context, transferID string) (*model.DirectTransfer, error) {
	ctx, span := tracer.Start(ctx, "Confirming transfer")
	defer span.End()

	transfer, err := l.datasource.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if err := transfer.Confirm(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := l.datasource.UpdateTransfer(ctx, transfer); err != nil {
		return nil, logAndRecordError(span, "saving transfer to db error: ", err)
	}

	if err := l.queue.EnqueueTransfer(ctx, transfer); err != nil {
		return nil, logAndRecordError(span, "queuing transfer error: ", err)
	}

	return transfer, nil
}

// CancelTransfer aborts a transfer that has not started processing.
func (l *Tijori) CancelTransfer(ctx context.Context, transferID string) (*model.DirectTransfer, error) {
	ctx, span := tracer.Start(ctx, "Cancelling transfer")
	defer span.End()

	transfer, err := l.datasource.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	prev := transfer.Status
	if err := transfer.Cancel(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := l.datasource.UpdateTransfer(ctx, transfer); err != nil {
		return nil, logAndRecordError(span, "saving transfer to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event:   model.EventTransferFailed,
		Payload: model.NewDomainEvent(model.EventTransferFailed, transfer.TransferID, string(prev), string(model.TransferFailed), map[string]interface{}{"reason": transfer.FailureReason}),
	})

	return transfer, nil
}

// GetTransfer fetches a direct transfer by id.
func (l *Tijori) GetTransfer(ctx context.Context, transferID string) (*model.DirectTransfer, error) {
	return l.datasource.GetTransfer(ctx, transferID)
}

// ProcessTransfer executes the three ledger movements of a confirmed
// transfer: debit the buyer for the gross amount, credit the seller
// with the net amount and sweep the fees into the fees wallet. The
// worker may call it again after a crash; a transfer that already
// completed is a no-op and idempotency keys keep the ledger from
// double-applying partial runs.
func (l *Tijori) ProcessTransfer(ctx context.Context, transferID string) error {
	ctx, span := tracer.Start(ctx, "Processing transfer")
	defer span.End()

	transfer, err := l.datasource.GetTransfer(ctx, transferID)
	if err != nil {
		return err
	}

	if transfer.Status == model.TransferComplete {
		logrus.Infof("transfer %s already complete, skipping", transferID)
		return nil
	}

	prev := transfer.Status
	if err := transfer.BeginProcessing(); err != nil {
		span.RecordError(err)
		return err
	}
	if err := l.datasource.UpdateTransfer(ctx, transfer); err != nil {
		return logAndRecordError(span, "saving transfer to db error: ", err)
	}

	if err := l.moveTransferFunds(ctx, transfer); err != nil {
		return l.failTransfer(ctx, transfer, err)
	}

	if err := transfer.Complete(); err != nil {
		span.RecordError(err)
		return err
	}
	if err := l.datasource.UpdateTransfer(ctx, transfer); err != nil {
		return logAndRecordError(span, "saving transfer to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event:   model.EventTransferCompleted,
		Payload: model.NewDomainEvent(model.EventTransferCompleted, transfer.TransferID, string(prev), string(model.TransferComplete), map[string]interface{}{"net_amount": transfer.Fees.NetAmount}),
	})
	return nil
}

func (l *Tijori) moveTransferFunds(ctx context.Context, transfer *model.DirectTransfer) error {
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Debit(opCtx, transfer.BuyerRef, transfer.Amount, transfer.TransferID+"-debit")
	}); err != nil {
		return err
	}
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Credit(opCtx, transfer.SellerRef, transfer.Fees.NetAmount, transfer.TransferID+"-credit")
	}); err != nil {
		return err
	}
	return executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Credit(opCtx, feesWalletRef, transfer.Fees.TotalFees, transfer.TransferID+"-fees")
	})
}

func (l *Tijori) failTransfer(ctx context.Context, transfer *model.DirectTransfer, cause error) error {
	if err := transfer.FailProcessing(cause.Error()); err != nil {
		logrus.Error("recording transfer failure error: ", err)
		return cause
	}
	if err := l.datasource.UpdateTransfer(ctx, transfer); err != nil {
		logrus.Error("saving failed transfer to db error: ", err)
	}

	if transfer.Status == model.TransferFailed {
		go l.SendWebhook(NewWebhook{
			Event:   model.EventTransferFailed,
			Payload: model.NewDomainEvent(model.EventTransferFailed, transfer.TransferID, string(model.TransferProcessing), string(model.TransferFailed), map[string]interface{}{"reason": transfer.FailureReason, "attempts": transfer.Attempts}),
		})
		return cause
	}

	// Back in confirmation; requeue so the worker gets one more shot.
	logrus.Warnf("transfer %s bounced back to confirmation after attempt %d: %v", transfer.TransferID, transfer.Attempts, cause)
	if err := l.queue.EnqueueTransfer(ctx, transfer); err != nil {
		logrus.Error("requeuing transfer error: ", err)
		return err
	}
	return apierror.NewAPIError(apierror.ErrExternalLedger, fmt.Sprintf("transfer %s failed and was requeued", transfer.TransferID), map[string]interface{}{"attempts": transfer.Attempts})
}
