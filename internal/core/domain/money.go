package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits the ledger stores.
const AmountScale int32 = 8

var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount has more than 8 fractional digits")
)

// ValidateAmount checks that a caller-supplied amount can be booked as is.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrAmountPrecision
	}
	return nil
}
