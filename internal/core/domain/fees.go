package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FeePolicy holds the configured fee parameters.
//
// Withdrawal fees are charged on top of the requested amount, conversion
// fees are taken out of the source amount before the rate is applied.
type FeePolicy struct {
	WithdrawalRate    decimal.Decimal // fraction, 0.02 = 2%
	ConversionPercent decimal.Decimal // percent, 0.5 = 0.5%
	TransferPercent   decimal.Decimal // percent
	TransferMin       decimal.Decimal
}

// DefaultFeePolicy returns the stock fee schedule.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		WithdrawalRate:    decimal.RequireFromString("0.02"),
		ConversionPercent: decimal.RequireFromString("0.5"),
		TransferPercent:   decimal.NewFromInt(1),
		TransferMin:       decimal.RequireFromString("0.01"),
	}
}

// WithdrawalFee is amount × rate, rounded up to the ledger scale.
func (p FeePolicy) WithdrawalFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.WithdrawalRate).RoundCeil(AmountScale)
}

// WithdrawalTotal is what a withdrawal debits: amount + fee.
func (p FeePolicy) WithdrawalTotal(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(p.WithdrawalFee(amount))
}

// ConversionNet is the source amount left after the conversion fee.
func (p FeePolicy) ConversionNet(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Sub(p.ConversionPercent.Div(hundred)))
}

// ConvertedAmount is net × rate, truncated to the ledger scale.
func (p FeePolicy) ConvertedAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return p.ConversionNet(amount).Mul(rate).Truncate(AmountScale)
}

// TransferFee is amount × percent / 100, floored at TransferMin.
func (p FeePolicy) TransferFee(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(p.TransferPercent).Div(hundred).RoundCeil(AmountScale)
	return decimal.Max(fee, p.TransferMin)
}
