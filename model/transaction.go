package model

import (
	"encoding/json"
	"time"

	"github.com/bell24h/tijori/internal/apierror"
)

// Transaction is a proposed transfer of funds between a buyer and a
// seller. It is immutable once routed; routing produces a derived
// DirectTransfer or Escrow, never a mutation of the transaction itself.
type Transaction struct {
	ID            int64                  `json:"-"`
	TransactionID string                 `json:"transaction_id"`
	Reference     string                 `json:"reference"`
	Amount        int64                  `json:"amount"`
	Currency      string                 `json:"currency"`
	BuyerRef      string                 `json:"buyer_ref"`
	SellerRef     string                 `json:"seller_ref"`
	Hash          string                 `json:"hash"`
	CreatedAt     time.Time              `json:"created_at"`
	MetaData      map[string]interface{} `json:"meta_data,omitempty"`
}

// WalletBalance is a point-in-time snapshot supplied by the wallet
// provider. It is advisory only; the authoritative compare-and-debit
// happens in the external ledger.
type WalletBalance struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Total     int64 `json:"total"`
}

// UserRef identifies a marketplace user together with the subscription
// tier that drives fee computation.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Tier  Tier   `json:"tier"`
}

// RoutingDecision is the outcome of evaluating a transaction against
// the escrow threshold and the buyer's balance snapshot.
type RoutingDecision struct {
	TransactionID string         `json:"transaction_id"`
	Path          SettlementPath `json:"path"`
	FeeEstimate   Fees           `json:"fee_estimate"`
	Threshold     int64          `json:"threshold"`
	DecidedAt     time.Time      `json:"decided_at"`
}

func (transaction *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(transaction)
}

// Validate checks the transaction is well formed before routing.
func (transaction *Transaction) Validate() error {
	if transaction.Amount <= 0 {
		return apierror.NewAPIError(apierror.ErrInvalidAmount, "transaction amount must be positive", map[string]interface{}{
			"amount": transaction.Amount,
		})
	}
	if transaction.BuyerRef == "" || transaction.SellerRef == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "transaction requires both buyer_ref and seller_ref", nil)
	}
	if transaction.BuyerRef == transaction.SellerRef {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "buyer and seller must be different parties", nil)
	}
	return nil
}
