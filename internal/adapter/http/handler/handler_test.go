package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newContext(method, path, body string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, w
}

func addressParams(address string) gin.Params {
	return gin.Params{{Key: "address", Value: address}}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "missing data envelope: %s", w.Body.String())
	return data
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Wallet Handler Tests ---

func TestWalletHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	walletSvc.EXPECT().Create(gomock.Any()).Return(&ports.CreatedWallet{
		Wallet:     domain.Wallet{Address: addrA, Status: domain.WalletStatusActive, CreatedAt: created, SecretHash: "hidden"},
		PrivateKey: "deadbeef",
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/wallets", "", nil)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, addrA, data["address"])
	assert.Equal(t, "ACTIVE", data["status"])
	assert.Equal(t, "2025-03-01T12:00:00Z", data["created_at"])
	assert.Equal(t, "deadbeef", data["private_key"])
	assert.NotContains(t, w.Body.String(), "hidden")
}

func TestWalletHandler_Get_InvalidAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl))

	c, w := newContext(http.MethodGet, "/", "", addressParams("nope"))
	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidRequest, decodeErrorCode(t, w))
}

func TestWalletHandler_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().Get(gomock.Any(), addrA).Return(nil, apperror.ErrNotFound("wallet"))

	// Path addresses are normalised before lookup.
	c, w := newContext(http.MethodGet, "/", "", addressParams(" 0X"+addrA[2:]))
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, decodeErrorCode(t, w))
}

func TestWalletHandler_Block(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().Block(gomock.Any(), addrA).Return(&domain.Wallet{Address: addrA, Status: domain.WalletStatusBlocked}, nil)

	c, w := newContext(http.MethodDelete, "/", "", addressParams(addrA))
	h.Block(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BLOCKED", decodeData(t, w)["status"])
}

func TestWalletHandler_ListBalances(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().ListBalances(gomock.Any(), addrA).Return([]domain.Balance{
		{Address: addrA, CurrencyID: 1, Amount: dec("0.12345678")},
		{Address: addrA, CurrencyID: 4, Amount: dec("100")},
	}, nil)

	c, w := newContext(http.MethodGet, "/", "", addressParams(addrA))
	h.ListBalances(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["count"])
	items := data["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "0.12345678", first["amount"], "amounts are decimal strings")
}

func TestWalletHandler_GetBalance_BadCurrencyID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl))

	c, w := newContext(http.MethodGet, "/", "", gin.Params{{Key: "address", Value: addrA}, {Key: "currency_id", Value: "btc"}})
	h.GetBalance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWalletHandler_GetTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)

	walletSvc.EXPECT().GetTransfer(gomock.Any(), int64(7)).Return(&domain.Transfer{
		ID: 7, SourceAddress: addrA, DestAddress: addrB, CurrencyID: 1, Amount: dec("5"), Fee: dec("0.05"),
	}, nil)

	c, w := newContext(http.MethodGet, "/", "", gin.Params{{Key: "id", Value: "7"}})
	h.GetTransfer(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "0.05", data["fee"])
	assert.Equal(t, addrB, data["dest_address"])
}

// --- Ledger Handler Tests ---

func TestLedgerHandler_Deposit_AcceptsNumberAndString(t *testing.T) {
	for _, body := range []string{`{"currency_id":1,"amount":10.5}`, `{"currency_id":1,"amount":"10.5"}`} {
		t.Run(body, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ledgerSvc := mocks.NewMockLedgerService(ctrl)
			h := NewLedgerHandler(ledgerSvc, mocks.NewMockWalletService(ctrl))

			ledgerSvc.EXPECT().Deposit(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, req ports.DepositRequest) (*ports.DepositResult, error) {
					assert.Equal(t, addrA, req.Address)
					assert.True(t, dec("10.5").Equal(req.Amount))
					return &ports.DepositResult{MovementID: 1, Address: addrA, CurrencyID: 1, Amount: req.Amount, Balance: dec("10.5")}, nil
				})

			c, w := newContext(http.MethodPost, "/", body, addressParams(addrA))
			h.Deposit(c)

			require.Equal(t, http.StatusCreated, w.Code)
			data := decodeData(t, w)
			assert.Equal(t, "10.5", data["balance"])
			assert.Equal(t, "DEPOSIT", data["kind"])
			assert.Equal(t, "0", data["fee"])
		})
	}
}

func TestLedgerHandler_Deposit_InvalidAmount(t *testing.T) {
	for _, body := range []string{
		`{"currency_id":1,"amount":0}`,
		`{"currency_id":1,"amount":"-3"}`,
		`{"currency_id":1,"amount":"0.000000001"}`,
		`{"currency_id":1,"amount":"abc"}`,
	} {
		t.Run(body, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockWalletService(ctrl))

			c, w := newContext(http.MethodPost, "/", body, addressParams(addrA))
			h.Deposit(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLedgerHandler_Deposit_OutOfRangeAmountIsInvalidAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockWalletService(ctrl))

	c, w := newContext(http.MethodPost, "/", `{"currency_id":1,"amount":"-1"}`, addressParams(addrA))
	h.Deposit(c)

	assert.Equal(t, apperror.CodeInvalidAmount, decodeErrorCode(t, w))
}

func TestLedgerHandler_Withdraw_HashesPrivateKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewLedgerHandler(ledgerSvc, walletSvc)

	walletSvc.EXPECT().HashSecret("c0ffee").Return("hashed")
	ledgerSvc.EXPECT().Withdraw(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.WithdrawalRequest) (*ports.WithdrawalResult, error) {
			assert.Equal(t, "hashed", req.SecretHash)
			return &ports.WithdrawalResult{
				MovementID: 2, Address: addrA, CurrencyID: 1,
				Amount: dec("100"), FeeRate: dec("0.02"), Fee: dec("2"), Balance: dec("0"),
			}, nil
		})

	c, w := newContext(http.MethodPost, "/", `{"currency_id":1,"amount":"100","private_key":" c0ffee "}`, addressParams(addrA))
	h.Withdraw(c)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "2", data["fee"])
	assert.Equal(t, "102", data["total"])
	assert.Equal(t, "0", data["balance"])
}

func TestLedgerHandler_Withdraw_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewLedgerHandler(ledgerSvc, walletSvc)

	walletSvc.EXPECT().HashSecret(gomock.Any()).Return("hashed")
	ledgerSvc.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	c, w := newContext(http.MethodPost, "/", `{"currency_id":1,"amount":"100","private_key":"k"}`, addressParams(addrA))
	h.Withdraw(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInsufficientFunds, decodeErrorCode(t, w))
}

func TestLedgerHandler_Withdraw_MissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockWalletService(ctrl))

	c, w := newContext(http.MethodPost, "/", `{"currency_id":1,"amount":"1"}`, addressParams(addrA))
	h.Withdraw(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidRequest, decodeErrorCode(t, w))
}

func TestLedgerHandler_Convert(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewLedgerHandler(ledgerSvc, walletSvc)

	walletSvc.EXPECT().HashSecret("k").Return("hashed")
	ledgerSvc.EXPECT().Convert(gomock.Any(), ports.ConversionRequest{
		Address: addrA, SourceCurrencyID: 1, DestCurrencyID: 4, Amount: dec("100"), SecretHash: "hashed",
	}).Return(&ports.ConversionResult{
		ConversionID: 3, Address: addrA, SourceCurrencyID: 1, DestCurrencyID: 4,
		SourceAmount: dec("100"), DestAmount: dec("199"), FeePercent: dec("0.5"), Rate: dec("2"),
		SourceBalance: dec("0"), DestBalance: dec("199"),
	}, nil)

	c, w := newContext(http.MethodPost, "/", `{"source_currency_id":1,"dest_currency_id":4,"amount":"100","private_key":"k"}`, addressParams(addrA))
	h.Convert(c)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "199", data["dest_amount"])
	assert.Equal(t, "199", data["dest_balance"])
	assert.Equal(t, "2", data["rate"])
}

func TestLedgerHandler_Convert_RateUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewLedgerHandler(ledgerSvc, walletSvc)

	walletSvc.EXPECT().HashSecret("k").Return("hashed")
	ledgerSvc.EXPECT().Convert(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrRateUnavailable(errors.New("timeout")))

	c, w := newContext(http.MethodPost, "/", `{"source_currency_id":1,"dest_currency_id":4,"amount":"1","private_key":"k"}`, addressParams(addrA))
	h.Convert(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "timeout", "internal cause is not exposed")
}

func TestLedgerHandler_Transfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewLedgerHandler(ledgerSvc, walletSvc)

	walletSvc.EXPECT().HashSecret("k").Return("hashed")
	ledgerSvc.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		SourceAddress: addrA, DestAddress: addrB, CurrencyID: 1, Amount: dec("100"), SecretHash: "hashed",
	}).Return(&ports.TransferResult{
		TransferID: 9, SourceAddress: addrA, DestAddress: addrB, CurrencyID: 1,
		Amount: dec("100"), Fee: dec("1"), SourceBalance: dec("0"), DestBalance: dec("100"),
	}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"dest_address": addrB,
		"currency_id":  1,
		"amount":       100,
		"private_key":  "k",
	})
	c, w := newContext(http.MethodPost, "/", string(body), addressParams(addrA))
	h.Transfer(c)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "1", data["fee"])
	assert.Equal(t, "100", data["dest_balance"])
}

func TestLedgerHandler_Transfer_BadDestination(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockWalletService(ctrl))

	c, w := newContext(http.MethodPost, "/", `{"dest_address":"bob","currency_id":1,"amount":"1","private_key":"k"}`, addressParams(addrA))
	h.Transfer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Rate Handler Tests ---

func TestRateHandler_ListCurrencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	rateSvc := mocks.NewMockRateService(ctrl)
	h := NewRateHandler(rateSvc)

	rateSvc.EXPECT().ListCurrencies(gomock.Any()).Return([]domain.Currency{
		{ID: 1, Code: "BTC", Name: "Bitcoin", Kind: domain.CurrencyKindCrypto},
	}, nil)

	c, w := newContext(http.MethodGet, "/", "", nil)
	h.ListCurrencies(c)

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeData(t, w)["items"].([]interface{})
	assert.Equal(t, "BTC", items[0].(map[string]interface{})["code"])
}

func TestRateHandler_Quote(t *testing.T) {
	ctrl := gomock.NewController(t)
	rateSvc := mocks.NewMockRateService(ctrl)
	h := NewRateHandler(rateSvc)

	rateSvc.EXPECT().Quote(gomock.Any(), "btc", "usd").Return(&ports.Quote{
		Base: "BTC", Target: "USD", Rate: dec("65000.5"), Timestamp: time.Now(),
	}, nil)

	c, w := newContext(http.MethodGet, "/", "", gin.Params{{Key: "base", Value: "btc"}, {Key: "target", Value: "usd"}})
	h.Quote(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "65000.5", data["rate"])
	assert.Equal(t, "BTC", data["base"])
}

// --- Health & Swagger ---

func TestHealthCheck(t *testing.T) {
	c, w := newContext(http.MethodGet, "/health", "", nil)

	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockHealthChecker(ctrl)
	cache := mocks.NewMockHealthChecker(ctrl)
	store.EXPECT().Ping(gomock.Any()).Return(nil)
	store.EXPECT().Name().Return("postgresql").AnyTimes()
	cache.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	cache.EXPECT().Name().Return("redis").AnyTimes()

	c, w := newContext(http.MethodGet, "/health", "", nil)
	HealthCheck(store, cache)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp struct {
		Status       string                       `json:"status"`
		Dependencies map[string]map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Dependencies["postgresql"]["status"])
	assert.Equal(t, "connection refused", resp.Dependencies["redis"]["error"])
}

func TestSwaggerUI(t *testing.T) {
	c, w := newContext(http.MethodGet, "/swagger", "", nil)

	SwaggerUI(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/swagger/spec")
}

func TestSwaggerSpec(t *testing.T) {
	c, w := newContext(http.MethodGet, "/swagger/spec", "", nil)

	SwaggerSpec(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/wallets/{address}/conversions")
}

// --- Router ---

func TestRouter_AdminRouteRequiresToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletSvc := mocks.NewMockWalletService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	router := SetupRouter(RouterDeps{
		WalletSvc: walletSvc,
		LedgerSvc: mocks.NewMockLedgerService(ctrl),
		RateSvc:   mocks.NewMockRateService(ctrl),
		TokenSvc:  tokenSvc,
		Mode:      gin.TestMode,
		Logger:    zerolog.Nop(),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/wallets/"+addrA, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tokenSvc.EXPECT().Validate("tok").Return(&ports.TokenClaims{Subject: "ops", Role: ports.RoleAdmin}, nil)
	walletSvc.EXPECT().Block(gomock.Any(), addrA).Return(&domain.Wallet{Address: addrA, Status: domain.WalletStatusBlocked}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/wallets/"+addrA, nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_BodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := SetupRouter(RouterDeps{
		WalletSvc: mocks.NewMockWalletService(ctrl),
		LedgerSvc: mocks.NewMockLedgerService(ctrl),
		RateSvc:   mocks.NewMockRateService(ctrl),
		TokenSvc:  mocks.NewMockTokenService(ctrl),
		Mode:      gin.TestMode,
		Logger:    zerolog.Nop(),
	})

	body := bytes.Repeat([]byte("a"), 2<<20)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallets/"+addrA+"/deposits", bytes.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
