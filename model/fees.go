package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bell24h/tijori/internal/apierror"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

type SettlementPath string

const (
	PathDirect SettlementPath = "direct"
	PathEscrow SettlementPath = "escrow"
)

// Fees is the computed fee breakdown for a settlement. All figures are
// minor units. NetAmount is what the seller receives after fees.
type Fees struct {
	TransactionFee int64 `json:"transaction_fee"`
	GSTAmount      int64 `json:"gst_amount"`
	TotalFees      int64 `json:"total_fees"`
	NetAmount      int64 `json:"net_amount"`
}

// FeeSchedule holds the tier-dependent fee rates. It is policy loaded
// from configuration, not a law of the engine: the GST base in
// particular (fee-on-fee vs fee-on-principal) differs across upstream
// billing flows, so the rate and its base stay configurable.
type FeeSchedule struct {
	DirectRates map[Tier]decimal.Decimal
	EscrowRates map[Tier]decimal.Decimal
	GSTRate     decimal.Decimal
}

// DefaultFeeSchedule returns the stock marketplace schedule:
// direct 2.5%/1.5%/1.0% and escrow 1.5%/1.0%/0.75% across
// free/pro/enterprise, with 18% GST computed on the transaction fee.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		DirectRates: map[Tier]decimal.Decimal{
			TierFree:       decimal.RequireFromString("0.025"),
			TierPro:        decimal.RequireFromString("0.015"),
			TierEnterprise: decimal.RequireFromString("0.01"),
		},
		EscrowRates: map[Tier]decimal.Decimal{
			TierFree:       decimal.RequireFromString("0.015"),
			TierPro:        decimal.RequireFromString("0.01"),
			TierEnterprise: decimal.RequireFromString("0.0075"),
		},
		GSTRate: decimal.RequireFromString("0.18"),
	}
}

// Rate resolves the transaction fee rate for a tier and settlement path.
func (s FeeSchedule) Rate(tier Tier, path SettlementPath) (decimal.Decimal, error) {
	var rates map[Tier]decimal.Decimal
	switch path {
	case PathDirect:
		rates = s.DirectRates
	case PathEscrow:
		rates = s.EscrowRates
	default:
		return decimal.Zero, apierror.NewAPIError(apierror.ErrFeeSchedule, fmt.Sprintf("unknown settlement path '%s'", path), nil)
	}
	rate, ok := rates[tier]
	if !ok {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrFeeSchedule, fmt.Sprintf("no fee rate configured for tier '%s' on path '%s'", tier, path), nil)
	}
	return rate, nil
}

// ComputeFees computes the fee breakdown for an amount in minor units.
// GST defaults to GSTRate of the transaction fee; a non-nil gstOverride
// is used verbatim instead. A schedule that pushes NetAmount below zero
// is a configuration error, never a silent clamp.
func ComputeFees(amount int64, tier Tier, path SettlementPath, schedule FeeSchedule, gstOverride *int64) (Fees, error) {
	if amount <= 0 {
		return Fees{}, apierror.NewAPIError(apierror.ErrInvalidAmount, "fee computation requires a positive amount", map[string]interface{}{
			"amount": amount,
		})
	}

	rate, err := schedule.Rate(tier, path)
	if err != nil {
		return Fees{}, err
	}

	transactionFee := decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()

	var gstAmount int64
	if gstOverride != nil {
		gstAmount = *gstOverride
	} else {
		gstAmount = decimal.NewFromInt(transactionFee).Mul(schedule.GSTRate).Round(0).IntPart()
	}

	totalFees := transactionFee + gstAmount
	netAmount := amount - totalFees
	if netAmount < 0 {
		return Fees{}, apierror.NewAPIError(apierror.ErrFeeSchedule, "fee schedule produces negative net amount", map[string]interface{}{
			"amount":     amount,
			"total_fees": totalFees,
			"tier":       tier,
			"path":       path,
		})
	}

	return Fees{
		TransactionFee: transactionFee,
		GSTAmount:      gstAmount,
		TotalFees:      totalFees,
		NetAmount:      netAmount,
	}, nil
}
