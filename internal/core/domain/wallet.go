package domain

import "time"

// WalletStatus represents the state of a wallet.
type WalletStatus string

const (
	WalletStatusActive  WalletStatus = "ACTIVE"
	WalletStatusBlocked WalletStatus = "BLOCKED"
)

// Valid reports whether s is a known status.
func (s WalletStatus) Valid() bool {
	return s == WalletStatusActive || s == WalletStatusBlocked
}

// Wallet is an account identified by a generated address.
// Wallets are never deleted; blocking is the only state change.
type Wallet struct {
	Address    string       `json:"address"`
	SecretHash string       `json:"-"` // sha256 hex of the private key, never exposed
	Status     WalletStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IsActive returns true if the wallet accepts ledger operations.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// CanTransitionTo reports whether the wallet may move to status next.
// Blocking is irreversible.
func (w *Wallet) CanTransitionTo(next WalletStatus) bool {
	if !next.Valid() {
		return false
	}
	if w.Status == WalletStatusBlocked {
		return next == WalletStatusBlocked
	}
	return true
}
