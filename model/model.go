package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes,
// e.g. txn_, esc_, mls_, dsp_, dtf_.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// MinorUnits is the number of minor currency units per major unit.
// Amounts throughout the system are carried as int64 minor units
// (paise for INR) so arithmetic never touches binary floats.
const MinorUnits = 100

// FormatAmount renders an amount held in minor units as a major-unit
// string, e.g. 4425_00 -> "4425.00". Used in error details and events.
func FormatAmount(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(MinorUnits)).StringFixed(2)
}

// HashTxn generates a SHA-256 hash of a transaction's relevant fields.
// This ensures the integrity of the transaction by creating a unique hash from its details.
func (transaction *Transaction) HashTxn() string {
	data := fmt.Sprintf("%d%s%s%s%s", transaction.Amount, transaction.Reference, transaction.Currency, transaction.BuyerRef, transaction.SellerRef)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
