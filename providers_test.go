package tijori

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/internal/apierror"
)

func shortTimeoutConfig() {
	config.MockConfig(&config.Configuration{
		Settlement: config.SettlementConfig{
			EscrowThreshold:      50000000,
			ProcessingTimeoutSec: 1,
		},
	})
}

func TestExecuteLedger_DeadlineBecomesProcessingTimeout(t *testing.T) {
	shortTimeoutConfig()

	calls := 0
	err := executeLedger(context.Background(), func(opCtx context.Context) error {
		calls++
		<-opCtx.Done()
		return opCtx.Err()
	})

	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrProcessingTimeout, apiErr.Code)
	assert.True(t, apierror.Retryable(err))
	assert.Equal(t, 1+ledgerRetries, calls, "every attempt gets its own deadline")

	details := apiErr.Details.(map[string]interface{})
	assert.Equal(t, 1, details["timeout_sec"])
}

func TestExecuteLedger_LedgerErrorBecomesExternalLedger(t *testing.T) {
	shortTimeoutConfig()

	calls := 0
	err := executeLedger(context.Background(), func(opCtx context.Context) error {
		calls++
		return errors.New("ledger down")
	})

	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrExternalLedger, apiErr.Code)
	assert.True(t, apierror.Retryable(err))
	assert.Equal(t, 1+ledgerRetries, calls)
}

func TestExecuteLedger_TransientFailureRecovers(t *testing.T) {
	shortTimeoutConfig()

	calls := 0
	err := executeLedger(context.Background(), func(opCtx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("ledger hiccup")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteLedger_FastOpHonorsDeadline(t *testing.T) {
	shortTimeoutConfig()

	err := executeLedger(context.Background(), func(opCtx context.Context) error {
		deadline, ok := opCtx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 200*time.Millisecond)
		return nil
	})
	assert.NoError(t, err)
}
