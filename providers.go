package tijori

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

// WalletProvider supplies point-in-time balance snapshots. The
// snapshot is advisory; the ledger performs the authoritative
// compare-and-debit.
type WalletProvider interface {
	GetBalance(ctx context.Context, walletRef string) (*model.WalletBalance, error)
}

// LedgerExecutor performs the actual fund movement. Calls are
// idempotent on the supplied key, which is how retried settlements
// avoid double debits.
type LedgerExecutor interface {
	Debit(ctx context.Context, walletRef string, amount int64, idempotencyKey string) error
	Credit(ctx context.Context, walletRef string, amount int64, idempotencyKey string) error
}

// TierProvider resolves a user's subscription tier for fee lookup.
type TierProvider interface {
	GetTier(ctx context.Context, userRef string) (model.Tier, error)
}

// ledgerRetries is the number of in-process retries per ledger call
// before the error escalates to the task queue's retry budget.
const ledgerRetries = 2

// executeLedger runs a ledger call under the configured per-attempt
// timeout with exponential backoff. A deadline overrun surfaces as
// PROCESSING_TIMEOUT, anything else from the ledger as
// EXTERNAL_LEDGER_ERROR; both are retryable by the caller with the
// same idempotency key.
func executeLedger(ctx context.Context, op func(context.Context) error) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	timeout := time.Duration(conf.Settlement.ProcessingTimeoutSec) * time.Second

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := op(attemptCtx); err != nil {
			if attemptCtx.Err() == context.DeadlineExceeded {
				// Give the backoff loop a chance; the classification to
				// PROCESSING_TIMEOUT happens below once retries are spent.
				return pkgerrors.Wrap(context.DeadlineExceeded, "ledger call timed out")
			}
			return pkgerrors.Wrap(err, "ledger call failed")
		}
		return nil
	}

	err = backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), ledgerRetries), ctx))
	if err == nil {
		return nil
	}

	if pkgerrors.Is(err, context.DeadlineExceeded) {
		return apierror.NewAPIError(apierror.ErrProcessingTimeout, "ledger call exceeded processing timeout", map[string]interface{}{
			"timeout_sec": conf.Settlement.ProcessingTimeoutSec,
		})
	}
	return apierror.NewAPIError(apierror.ErrExternalLedger, "ledger call failed", err.Error())
}
