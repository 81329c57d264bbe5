package model

import (
	"fmt"
	"time"

	"github.com/bell24h/tijori/internal/apierror"
)

type TransferStatus string

const (
	TransferValidation   TransferStatus = "validation"
	TransferConfirmation TransferStatus = "confirmation"
	TransferProcessing   TransferStatus = "processing"
	TransferComplete     TransferStatus = "complete"
	TransferFailed       TransferStatus = "failed"
)

// MaxTransferAttempts bounds how many times a processing transfer may
// be retried after transient ledger failures before it is parked as
// failed for manual intervention.
const MaxTransferAttempts = 3

// DirectTransfer is the fast settlement path for amounts below the
// escrow threshold. It walks validation -> confirmation -> processing
// -> complete, with a single bounce back to confirmation permitted on
// a processing error.
type DirectTransfer struct {
	ID            int64          `json:"-"`
	TransferID    string         `json:"transfer_id"`
	TransactionID string         `json:"transaction_id"`
	BuyerRef      string         `json:"buyer_ref"`
	SellerRef     string         `json:"seller_ref"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Fees          Fees           `json:"fees"`
	Status        TransferStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	Requeued      bool           `json:"requeued"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

func invalidTransferState(t *DirectTransfer, attempted string) error {
	return apierror.NewAPIError(apierror.ErrInvalidTransferState,
		fmt.Sprintf("cannot %s transfer in status '%s'", attempted, t.Status),
		map[string]interface{}{
			"transfer_id": t.TransferID,
			"status":      t.Status,
			"attempted":   attempted,
		})
}

// NewDirectTransfer derives a transfer in validation status from a
// routed transaction.
func NewDirectTransfer(transaction *Transaction, fees Fees) *DirectTransfer {
	now := time.Now()
	return &DirectTransfer{
		TransferID:    GenerateUUIDWithSuffix("dtf"),
		TransactionID: transaction.TransactionID,
		BuyerRef:      transaction.BuyerRef,
		SellerRef:     transaction.SellerRef,
		Amount:        transaction.Amount,
		Currency:      transaction.Currency,
		Fees:          fees,
		Status:        TransferValidation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Confirm moves the transfer from validation to confirmation.
func (t *DirectTransfer) Confirm() error {
	if t.Status != TransferValidation {
		return invalidTransferState(t, "confirm")
	}
	t.Status = TransferConfirmation
	t.UpdatedAt = time.Now()
	return nil
}

// BeginProcessing moves a confirmed transfer into processing and
// counts the attempt. Calling it on a transfer already in processing
// is allowed so a retried task can resume after a timeout.
func (t *DirectTransfer) BeginProcessing() error {
	if t.Status != TransferConfirmation && t.Status != TransferProcessing {
		return invalidTransferState(t, "process")
	}
	t.Status = TransferProcessing
	t.Attempts++
	t.UpdatedAt = time.Now()
	return nil
}

// Complete finishes a processing transfer. Completing an already
// complete transfer is a no-op so retries stay idempotent.
func (t *DirectTransfer) Complete() error {
	if t.Status == TransferComplete {
		return nil
	}
	if t.Status != TransferProcessing {
		return invalidTransferState(t, "complete")
	}
	now := time.Now()
	t.Status = TransferComplete
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// FailProcessing records a processing failure. The first failure sends
// the transfer back to confirmation for one more pass; any further
// failure, or exhausting the attempt budget, is terminal.
func (t *DirectTransfer) FailProcessing(reason string) error {
	if t.Status != TransferProcessing {
		return invalidTransferState(t, "fail")
	}
	t.FailureReason = reason
	t.UpdatedAt = time.Now()
	if !t.Requeued && t.Attempts < MaxTransferAttempts {
		t.Requeued = true
		t.Status = TransferConfirmation
		return nil
	}
	t.Status = TransferFailed
	return nil
}

// Cancel aborts the transfer. Allowed only before processing starts,
// to avoid abandoning a partial fund movement.
func (t *DirectTransfer) Cancel() error {
	if t.Status != TransferValidation && t.Status != TransferConfirmation {
		return invalidTransferState(t, "cancel")
	}
	t.Status = TransferFailed
	t.FailureReason = "cancelled by caller"
	t.UpdatedAt = time.Now()
	return nil
}
