package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the current amount of one currency held by one wallet.
// Amount is never negative.
type Balance struct {
	Address    string          `json:"address"`
	CurrencyID int64           `json:"currency_id"`
	Amount     decimal.Decimal `json:"amount"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// BalanceKey identifies a balance row.
type BalanceKey struct {
	Address    string
	CurrencyID int64
}

// Less orders keys by address, then currency id.
func (k BalanceKey) Less(other BalanceKey) bool {
	if k.Address != other.Address {
		return k.Address < other.Address
	}
	return k.CurrencyID < other.CurrencyID
}

// LockOrder returns the distinct keys in the fixed order rows must be locked in.
func LockOrder(keys ...BalanceKey) []BalanceKey {
	out := make([]BalanceKey, 0, len(keys))
	seen := make(map[BalanceKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
