package dto

import (
	"encoding/json"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// Amounts arrive as JSON numbers or numeric strings and are validated by
// the decimal_amount tag. decimal.Decimal fields serialize as strings.

// DepositRequest is the request body for POST /wallets/:address/deposits.
type DepositRequest struct {
	CurrencyID int64       `json:"currency_id" binding:"required,gt=0"`
	Amount     json.Number `json:"amount" binding:"required,decimal_amount"`
}

// WithdrawalRequest is the request body for POST /wallets/:address/withdrawals.
type WithdrawalRequest struct {
	CurrencyID int64       `json:"currency_id" binding:"required,gt=0"`
	Amount     json.Number `json:"amount" binding:"required,decimal_amount"`
	PrivateKey string      `json:"private_key" binding:"required,max=512"`
}

// ConversionRequest is the request body for POST /wallets/:address/conversions.
type ConversionRequest struct {
	SourceCurrencyID int64       `json:"source_currency_id" binding:"required,gt=0"`
	DestCurrencyID   int64       `json:"dest_currency_id" binding:"required,gt=0"`
	Amount           json.Number `json:"amount" binding:"required,decimal_amount"`
	PrivateKey       string      `json:"private_key" binding:"required,max=512"`
}

// TransferRequest is the request body for POST /wallets/:address/transfers.
type TransferRequest struct {
	DestAddress string      `json:"dest_address" binding:"required,wallet_address"`
	CurrencyID  int64       `json:"currency_id" binding:"required,gt=0"`
	Amount      json.Number `json:"amount" binding:"required,decimal_amount"`
	PrivateKey  string      `json:"private_key" binding:"required,max=512"`
}

// ParseAmount converts a validated amount. Call only after binding succeeded.
func ParseAmount(n json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// WalletResponse is the public view of a wallet.
type WalletResponse struct {
	Address   string `json:"address"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// CreatedWalletResponse carries the private key. It is only ever sent once.
type CreatedWalletResponse struct {
	WalletResponse
	PrivateKey string `json:"private_key"`
}

type BalanceResponse struct {
	Address    string          `json:"address"`
	CurrencyID int64           `json:"currency_id"`
	Amount     decimal.Decimal `json:"amount"`
	UpdatedAt  *string         `json:"updated_at,omitempty"`
}

type MovementResponse struct {
	ID           int64           `json:"id"`
	Address      string          `json:"address"`
	CurrencyID   int64           `json:"currency_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	ConversionID *int64          `json:"conversion_id,omitempty"`
	OccurredAt   string          `json:"occurred_at"`
}

type ConversionResponse struct {
	ID               int64           `json:"id"`
	Address          string          `json:"address"`
	SourceCurrencyID int64           `json:"source_currency_id"`
	DestCurrencyID   int64           `json:"dest_currency_id"`
	SourceAmount     decimal.Decimal `json:"source_amount"`
	DestAmount       decimal.Decimal `json:"dest_amount"`
	FeePercent       decimal.Decimal `json:"fee_percent"`
	Rate             decimal.Decimal `json:"rate"`
	OccurredAt       string          `json:"occurred_at"`
}

type TransferResponse struct {
	ID            int64           `json:"id"`
	SourceAddress string          `json:"source_address"`
	DestAddress   string          `json:"dest_address"`
	CurrencyID    int64           `json:"currency_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	OccurredAt    string          `json:"occurred_at"`
}

type CurrencyResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type QuoteResponse struct {
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp string          `json:"timestamp"`
}

// DepositResponse is returned by a booked deposit.
type DepositResponse struct {
	MovementID int64           `json:"movement_id"`
	Address    string          `json:"address"`
	CurrencyID int64           `json:"currency_id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	OccurredAt string          `json:"occurred_at"`
	Balance    decimal.Decimal `json:"balance"`
}

// WithdrawalResponse is returned by a booked withdrawal.
type WithdrawalResponse struct {
	MovementID int64           `json:"movement_id"`
	Address    string          `json:"address"`
	CurrencyID int64           `json:"currency_id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	FeeRate    decimal.Decimal `json:"fee_rate"`
	Fee        decimal.Decimal `json:"fee"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt string          `json:"occurred_at"`
	Balance    decimal.Decimal `json:"balance"`
}

type ConversionResultResponse struct {
	ConversionResponse
	SourceBalance decimal.Decimal `json:"source_balance"`
	DestBalance   decimal.Decimal `json:"dest_balance"`
}

type TransferResultResponse struct {
	TransferResponse
	SourceBalance decimal.Decimal `json:"source_balance"`
	DestBalance   decimal.Decimal `json:"dest_balance"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ToWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		Address:   w.Address,
		Status:    string(w.Status),
		CreatedAt: formatTime(w.CreatedAt),
	}
}

func ToWalletResponses(ws []domain.Wallet) []WalletResponse {
	out := make([]WalletResponse, 0, len(ws))
	for i := range ws {
		out = append(out, ToWalletResponse(&ws[i]))
	}
	return out
}

func ToCreatedWalletResponse(cw *ports.CreatedWallet) CreatedWalletResponse {
	return CreatedWalletResponse{
		WalletResponse: ToWalletResponse(&cw.Wallet),
		PrivateKey:     cw.PrivateKey,
	}
}

func ToBalanceResponse(b *domain.Balance) BalanceResponse {
	resp := BalanceResponse{
		Address:    b.Address,
		CurrencyID: b.CurrencyID,
		Amount:     b.Amount,
	}
	if !b.UpdatedAt.IsZero() {
		s := formatTime(b.UpdatedAt)
		resp.UpdatedAt = &s
	}
	return resp
}

func ToBalanceResponses(bs []domain.Balance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(bs))
	for i := range bs {
		out = append(out, ToBalanceResponse(&bs[i]))
	}
	return out
}

func ToMovementResponses(ms []domain.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, MovementResponse{
			ID:           m.ID,
			Address:      m.Address,
			CurrencyID:   m.CurrencyID,
			Kind:         string(m.Kind),
			Amount:       m.Amount,
			Fee:          m.Fee,
			ConversionID: m.ConversionID,
			OccurredAt:   formatTime(m.OccurredAt),
		})
	}
	return out
}

func ToConversionResponse(c *domain.Conversion) ConversionResponse {
	return ConversionResponse{
		ID:               c.ID,
		Address:          c.Address,
		SourceCurrencyID: c.SourceCurrencyID,
		DestCurrencyID:   c.DestCurrencyID,
		SourceAmount:     c.SourceAmount,
		DestAmount:       c.DestAmount,
		FeePercent:       c.FeePercent,
		Rate:             c.Rate,
		OccurredAt:       formatTime(c.OccurredAt),
	}
}

func ToConversionResponses(cs []domain.Conversion) []ConversionResponse {
	out := make([]ConversionResponse, 0, len(cs))
	for i := range cs {
		out = append(out, ToConversionResponse(&cs[i]))
	}
	return out
}

func ToTransferResponse(t *domain.Transfer) TransferResponse {
	return TransferResponse{
		ID:            t.ID,
		SourceAddress: t.SourceAddress,
		DestAddress:   t.DestAddress,
		CurrencyID:    t.CurrencyID,
		Amount:        t.Amount,
		Fee:           t.Fee,
		OccurredAt:    formatTime(t.OccurredAt),
	}
}

func ToTransferResponses(ts []domain.Transfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(ts))
	for i := range ts {
		out = append(out, ToTransferResponse(&ts[i]))
	}
	return out
}

func ToCurrencyResponses(cs []domain.Currency) []CurrencyResponse {
	out := make([]CurrencyResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, CurrencyResponse{ID: c.ID, Code: c.Code, Name: c.Name, Kind: string(c.Kind)})
	}
	return out
}

func ToQuoteResponse(q *ports.Quote) QuoteResponse {
	return QuoteResponse{
		Base:      q.Base,
		Target:    q.Target,
		Rate:      q.Rate,
		Timestamp: formatTime(q.Timestamp),
	}
}

func ToDepositResponse(r *ports.DepositResult) DepositResponse {
	return DepositResponse{
		MovementID: r.MovementID,
		Address:    r.Address,
		CurrencyID: r.CurrencyID,
		Kind:       string(domain.MovementKindDeposit),
		Amount:     r.Amount,
		Fee:        decimal.Zero,
		OccurredAt: formatTime(r.OccurredAt),
		Balance:    r.Balance,
	}
}

func ToWithdrawalResponse(r *ports.WithdrawalResult) WithdrawalResponse {
	return WithdrawalResponse{
		MovementID: r.MovementID,
		Address:    r.Address,
		CurrencyID: r.CurrencyID,
		Kind:       string(domain.MovementKindWithdrawal),
		Amount:     r.Amount,
		FeeRate:    r.FeeRate,
		Fee:        r.Fee,
		Total:      r.Amount.Add(r.Fee),
		OccurredAt: formatTime(r.OccurredAt),
		Balance:    r.Balance,
	}
}

func ToConversionResultResponse(r *ports.ConversionResult) ConversionResultResponse {
	return ConversionResultResponse{
		ConversionResponse: ConversionResponse{
			ID:               r.ConversionID,
			Address:          r.Address,
			SourceCurrencyID: r.SourceCurrencyID,
			DestCurrencyID:   r.DestCurrencyID,
			SourceAmount:     r.SourceAmount,
			DestAmount:       r.DestAmount,
			FeePercent:       r.FeePercent,
			Rate:             r.Rate,
			OccurredAt:       formatTime(r.OccurredAt),
		},
		SourceBalance: r.SourceBalance,
		DestBalance:   r.DestBalance,
	}
}

func ToTransferResultResponse(r *ports.TransferResult) TransferResultResponse {
	return TransferResultResponse{
		TransferResponse: TransferResponse{
			ID:            r.TransferID,
			SourceAddress: r.SourceAddress,
			DestAddress:   r.DestAddress,
			CurrencyID:    r.CurrencyID,
			Amount:        r.Amount,
			Fee:           r.Fee,
			OccurredAt:    formatTime(r.OccurredAt),
		},
		SourceBalance: r.SourceBalance,
		DestBalance:   r.DestBalance,
	}
}
