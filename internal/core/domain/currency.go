package domain

// CurrencyKind separates crypto assets from fiat money.
type CurrencyKind string

const (
	CurrencyKindCrypto CurrencyKind = "CRYPTO"
	CurrencyKindFiat   CurrencyKind = "FIAT"
)

// Currency is a catalog entry mapping an internal id to a tradeable code.
type Currency struct {
	ID   int64        `json:"id"`
	Code string       `json:"code"` // e.g. "BTC"
	Name string       `json:"name"`
	Kind CurrencyKind `json:"kind"`
}
