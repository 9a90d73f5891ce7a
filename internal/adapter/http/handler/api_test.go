package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/rates"
	"wallet-ledger/internal/adapter/storage/memory"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRates answers from a table keyed "FROM/TO".
type fixedRates map[string]string

func (r fixedRates) GetRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	s, ok := r[from+"/"+to]
	if !ok {
		return decimal.Zero, ports.ErrRateNotFound
	}
	return decimal.RequireFromString(s), nil
}

// testApp wires the real HTTP layer, services and the in-memory store,
// with Redis provided by miniredis.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	tokenSvc *service.JWTTokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.NewWithWriter("error", &bytes.Buffer{})
	store := memory.New()
	hashSvc := service.NewSHA256HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "wallet-ledger")
	provider := rates.NewCachedProvider(fixedRates{"BTC/USD": "2"}, redisStorage.NewRateCache(rdb), time.Minute, log)

	walletSvc := service.NewWalletService(
		store.Wallets(), store.Balances(), store.Movements(), store.Conversions(), store.Transfers(), store.Currencies(),
		service.NewKeyGenerator(32, 20), hashSvc, log,
	)
	ledgerSvc := service.NewLedgerService(
		store.Wallets(), store.Balances(), store.Movements(), store.Conversions(), store.Transfers(), store.Currencies(),
		provider, hashSvc, store.Transactor(), domain.DefaultFeePolicy(), 1, log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		LedgerSvc:      ledgerSvc,
		RateSvc:        service.NewRateService(store.Currencies(), provider, log),
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{memory.HealthCheck{}, redisStorage.NewHealthCheck(rdb)},
		Mode:           gin.TestMode,
		Logger:         log,
	})

	app := &testApp{server: httptest.NewServer(router), redis: mr, tokenSvc: tokenSvc}
	t.Cleanup(func() {
		app.server.Close()
		mr.Close()
	})
	return app
}

type apiResponse struct {
	Status    int
	Data      map[string]interface{}
	ErrorCode string
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, header http.Header) apiResponse {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope struct {
		Data      map[string]interface{} `json:"data"`
		ErrorCode string                 `json:"error_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return apiResponse{Status: resp.StatusCode, Data: envelope.Data, ErrorCode: envelope.ErrorCode}
}

func (a *testApp) createWallet(t *testing.T) (address, privateKey string) {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/wallets", nil, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	return resp.Data["address"].(string), resp.Data["private_key"].(string)
}

func TestAPI_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAPI_WalletLifecycle(t *testing.T) {
	app := newTestApp(t)
	alice, aliceKey := app.createWallet(t)
	bob, _ := app.createWallet(t)

	// Deposit
	resp := app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/deposits",
		map[string]interface{}{"currency_id": 1, "amount": "100"}, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "100", resp.Data["balance"])

	// Withdrawal with the wrong key is rejected before any change
	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/withdrawals",
		map[string]interface{}{"currency_id": 1, "amount": "50", "private_key": "not-the-key"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "WLT_004", resp.ErrorCode)

	// Withdrawal: 50 plus a 2% fee on top
	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/withdrawals",
		map[string]interface{}{"currency_id": 1, "amount": "50", "private_key": aliceKey}, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "1", resp.Data["fee"])
	assert.Equal(t, "49", resp.Data["balance"])

	// Conversion: 40 BTC less 0.5% at 2 USD/BTC
	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/conversions",
		map[string]interface{}{"source_currency_id": 1, "dest_currency_id": 4, "amount": "40", "private_key": aliceKey}, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "79.6", resp.Data["dest_amount"])
	assert.Equal(t, "9", resp.Data["source_balance"])

	// Conversion with no rate in either direction
	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/conversions",
		map[string]interface{}{"source_currency_id": 1, "dest_currency_id": 3, "amount": "1", "private_key": aliceKey}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)

	// Transfer: 5 BTC to bob, 1% fee paid by the sender
	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/transfers",
		map[string]interface{}{"dest_address": bob, "currency_id": 1, "amount": "5", "private_key": aliceKey}, nil)
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "0.05", resp.Data["fee"])
	assert.Equal(t, "3.95", resp.Data["source_balance"])
	assert.Equal(t, "5", resp.Data["dest_balance"])
	transferID := int64(resp.Data["id"].(float64))

	// Over-withdrawal
	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+alice+"/withdrawals",
		map[string]interface{}{"currency_id": 1, "amount": "3.95", "private_key": aliceKey}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, "WLT_005", resp.ErrorCode)

	// Read side
	resp = app.do(t, http.MethodGet, "/api/v1/wallets/"+alice+"/balances", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, float64(2), resp.Data["count"])

	resp = app.do(t, http.MethodGet, "/api/v1/wallets/"+alice+"/movements", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, float64(4), resp.Data["count"], "deposit, withdrawal and the two conversion legs")

	resp = app.do(t, http.MethodGet, "/api/v1/wallets/"+bob+"/transfers", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, float64(1), resp.Data["count"])

	resp = app.do(t, http.MethodGet, "/api/v1/transfers/"+jsonInt(transferID), nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, alice, resp.Data["source_address"])

	resp = app.do(t, http.MethodGet, "/api/v1/wallets/"+bob+"/balances/4", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "0", resp.Data["amount"], "a currency never touched reads as zero")
}

func TestAPI_BlockWallet(t *testing.T) {
	app := newTestApp(t)
	address, key := app.createWallet(t)

	resp := app.do(t, http.MethodDelete, "/api/v1/wallets/"+address, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	token, _, err := app.tokenSvc.Generate("ops")
	require.NoError(t, err)
	auth := http.Header{"Authorization": []string{"Bearer " + token}}

	resp = app.do(t, http.MethodDelete, "/api/v1/wallets/"+address, nil, auth)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "BLOCKED", resp.Data["status"])

	// Blocking twice is idempotent
	resp = app.do(t, http.MethodDelete, "/api/v1/wallets/"+address, nil, auth)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+address+"/deposits",
		map[string]interface{}{"currency_id": 1, "amount": 1}, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "WLT_002", resp.ErrorCode)

	resp = app.do(t, http.MethodPost, "/api/v1/wallets/"+address+"/withdrawals",
		map[string]interface{}{"currency_id": 1, "amount": 1, "private_key": key}, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestAPI_QuoteIsCached(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/v1/quotes/btc/usd", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "2", resp.Data["rate"])
	assert.True(t, app.redis.Exists("rate:BTC:USD"))

	resp = app.do(t, http.MethodGet, "/api/v1/quotes/usd/btc", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "0.5", resp.Data["rate"])
}

func TestAPI_UnknownWallet(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/v1/wallets/0xabcdef", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "WLT_001", resp.ErrorCode)
}

func jsonInt(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
