package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bell24h/tijori/internal/apierror"
)

func TestComputeFees_DirectFreeTier(t *testing.T) {
	fees, err := ComputeFees(15000000, TierFree, PathDirect, DefaultFeeSchedule(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(375000), fees.TransactionFee)
	assert.Equal(t, int64(67500), fees.GSTAmount)
	assert.Equal(t, int64(442500), fees.TotalFees)
	assert.Equal(t, int64(14557500), fees.NetAmount)
}

func TestComputeFees_TierAndPathRates(t *testing.T) {
	amount := int64(10000000)
	tests := []struct {
		tier Tier
		path SettlementPath
		fee  int64
	}{
		{TierFree, PathDirect, 250000},
		{TierPro, PathDirect, 150000},
		{TierEnterprise, PathDirect, 100000},
		{TierFree, PathEscrow, 150000},
		{TierPro, PathEscrow, 100000},
		{TierEnterprise, PathEscrow, 75000},
	}
	for _, tt := range tests {
		fees, err := ComputeFees(amount, tt.tier, tt.path, DefaultFeeSchedule(), nil)
		assert.NoError(t, err)
		assert.Equal(t, tt.fee, fees.TransactionFee, "tier %s path %s", tt.tier, tt.path)
		assert.Equal(t, amount-fees.TotalFees, fees.NetAmount)
	}
}

func TestComputeFees_GSTOverride(t *testing.T) {
	override := int64(99999)
	fees, err := ComputeFees(15000000, TierFree, PathDirect, DefaultFeeSchedule(), &override)
	assert.NoError(t, err)
	assert.Equal(t, int64(375000), fees.TransactionFee)
	assert.Equal(t, override, fees.GSTAmount)
	assert.Equal(t, int64(474999), fees.TotalFees)
}

func TestComputeFees_RoundsHalfUp(t *testing.T) {
	// 101 * 0.025 = 2.525, rounds to 3 paise.
	fees, err := ComputeFees(101, TierFree, PathDirect, DefaultFeeSchedule(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), fees.TransactionFee)
	assert.Equal(t, int64(1), fees.GSTAmount)
}

func TestComputeFees_NonPositiveAmount(t *testing.T) {
	_, err := ComputeFees(0, TierFree, PathDirect, DefaultFeeSchedule(), nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidAmount, apiErr.Code)
}

func TestComputeFees_UnknownTier(t *testing.T) {
	_, err := ComputeFees(1000, Tier("platinum"), PathDirect, DefaultFeeSchedule(), nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrFeeSchedule, apiErr.Code)
}

func TestComputeFees_NegativeNetRejected(t *testing.T) {
	schedule := DefaultFeeSchedule()
	schedule.DirectRates[TierFree] = decimal.RequireFromString("0.9")
	_, err := ComputeFees(100, TierFree, PathDirect, schedule, nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrFeeSchedule, apiErr.Code)
}

func TestFeeSchedule_UnknownPath(t *testing.T) {
	_, err := DefaultFeeSchedule().Rate(TierFree, SettlementPath("wire"))
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "4425.00", FormatAmount(442500))
	assert.Equal(t, "0.01", FormatAmount(1))
	assert.Equal(t, "150000.00", FormatAmount(15000000))
}
