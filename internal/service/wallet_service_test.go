package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc            *WalletServiceImpl
	walletRepo     *mocks.MockWalletRepository
	balanceRepo    *mocks.MockBalanceRepository
	movementRepo   *mocks.MockMovementRepository
	conversionRepo *mocks.MockConversionRepository
	transferRepo   *mocks.MockTransferRepository
	currencyRepo   *mocks.MockCurrencyRepository
	keyGen         *mocks.MockKeyGenerator
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo:     mocks.NewMockWalletRepository(ctrl),
		balanceRepo:    mocks.NewMockBalanceRepository(ctrl),
		movementRepo:   mocks.NewMockMovementRepository(ctrl),
		conversionRepo: mocks.NewMockConversionRepository(ctrl),
		transferRepo:   mocks.NewMockTransferRepository(ctrl),
		currencyRepo:   mocks.NewMockCurrencyRepository(ctrl),
		keyGen:         mocks.NewMockKeyGenerator(ctrl),
	}
	d.svc = NewWalletService(
		d.walletRepo, d.balanceRepo, d.movementRepo, d.conversionRepo,
		d.transferRepo, d.currencyRepo, d.keyGen, NewSHA256HashService(), zerolog.Nop(),
	)
	return d
}

func TestWalletService_Create_Success(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.keyGen.EXPECT().Generate().Return(addrA, privateKey, nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, w *domain.Wallet) error {
		assert.Equal(t, addrA, w.Address)
		assert.Equal(t, domain.WalletStatusActive, w.Status)
		assert.Equal(t, NewSHA256HashService().Hash(privateKey), w.SecretHash)
		assert.NotEqual(t, privateKey, w.SecretHash)
		return nil
	})

	created, err := d.svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, privateKey, created.PrivateKey)
	assert.Equal(t, addrA, created.Wallet.Address)
	assert.False(t, created.Wallet.CreatedAt.IsZero())
}

func TestWalletService_Create_RetriesAddressCollision(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	gomock.InOrder(
		d.keyGen.EXPECT().Generate().Return(addrA, "k1", nil),
		d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicateAddress),
		d.keyGen.EXPECT().Generate().Return(addrB, "k2", nil),
		d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil),
	)

	created, err := d.svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, addrB, created.Wallet.Address)
	assert.Equal(t, "k2", created.PrivateKey)
}

func TestWalletService_Create_GivesUpAfterRepeatedCollisions(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.keyGen.EXPECT().Generate().Return(addrA, "k", nil).Times(maxAddressAttempts)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicateAddress).Times(maxAddressAttempts)

	_, err := d.svc.Create(ctx)
	assertAppError(t, err, apperror.CodeInternal)
}

func TestWalletService_Create_StoreError(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.keyGen.EXPECT().Generate().Return(addrA, "k", nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("connection reset"))

	_, err := d.svc.Create(ctx)
	assertAppError(t, err, apperror.CodeInternal)
}

func TestWalletService_Get_NotFound(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(nil, nil)

	_, err := d.svc.Get(ctx, addrA)
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestWalletService_List_EmptyIsNotNil(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.walletRepo.EXPECT().List(ctx).Return(nil, nil)

	wallets, err := d.svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, wallets)
	assert.Empty(t, wallets)
}

func TestWalletService_SetStatus(t *testing.T) {
	active := &domain.Wallet{Address: addrA, Status: domain.WalletStatusActive}
	blocked := &domain.Wallet{Address: addrA, Status: domain.WalletStatusBlocked}

	t.Run("block active wallet", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(active, nil)
		d.walletRepo.EXPECT().UpdateStatus(ctx, addrA, domain.WalletStatusBlocked).Return(blocked, nil)

		w, err := d.svc.Block(ctx, addrA)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletStatusBlocked, w.Status)
	})

	t.Run("blocking twice is a no-op", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(blocked, nil)

		w, err := d.svc.Block(ctx, addrA)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletStatusBlocked, w.Status)
	})

	t.Run("unblock rejected", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(blocked, nil)

		_, err := d.svc.SetStatus(ctx, addrA, domain.WalletStatusActive)
		assertAppError(t, err, apperror.CodeInvalidRequest)
	})

	t.Run("unknown status", func(t *testing.T) {
		d := setupWalletService(t)
		_, err := d.svc.SetStatus(context.Background(), addrA, domain.WalletStatus("FROZEN"))
		assertAppError(t, err, apperror.CodeInvalidRequest)
	})

	t.Run("missing wallet", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(nil, nil)

		_, err := d.svc.Block(ctx, addrA)
		assertAppError(t, err, apperror.CodeNotFound)
	})
}

func TestWalletService_VerifySecret(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	hash := NewSHA256HashService()
	w := &domain.Wallet{Address: addrA, SecretHash: hash.Hash(privateKey), Status: domain.WalletStatusActive}

	d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil).Times(3)

	ok, err := d.svc.VerifySecret(ctx, addrA, d.svc.HashSecret(privateKey))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.svc.VerifySecret(ctx, addrA, d.svc.HashSecret("other"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.svc.VerifySecret(ctx, addrA, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalletService_GetBalance(t *testing.T) {
	w := &domain.Wallet{Address: addrA, Status: domain.WalletStatusActive}
	btc := &domain.Currency{ID: btcID, Code: "BTC"}

	t.Run("absent row reads as zero", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil)
		d.currencyRepo.EXPECT().GetByID(ctx, btcID).Return(btc, nil)
		d.balanceRepo.EXPECT().Get(ctx, addrA, btcID).Return(nil, nil)

		b, err := d.svc.GetBalance(ctx, addrA, btcID)
		require.NoError(t, err)
		assert.True(t, b.Amount.IsZero())
		assert.Equal(t, btcID, b.CurrencyID)
	})

	t.Run("existing row", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil)
		d.currencyRepo.EXPECT().GetByID(ctx, btcID).Return(btc, nil)
		d.balanceRepo.EXPECT().Get(ctx, addrA, btcID).Return(&domain.Balance{Address: addrA, CurrencyID: btcID, Amount: dec("3.5")}, nil)

		b, err := d.svc.GetBalance(ctx, addrA, btcID)
		require.NoError(t, err)
		assert.True(t, dec("3.5").Equal(b.Amount))
	})

	t.Run("unknown currency", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil)
		d.currencyRepo.EXPECT().GetByID(ctx, int64(42)).Return(nil, nil)

		_, err := d.svc.GetBalance(ctx, addrA, 42)
		assertAppError(t, err, apperror.CodeNotFound)
	})
}

func TestWalletService_ListBalances(t *testing.T) {
	w := &domain.Wallet{Address: addrA, Status: domain.WalletStatusActive}

	t.Run("no balances is not found", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil)
		d.balanceRepo.EXPECT().ListByAddress(ctx, addrA).Return(nil, nil)

		_, err := d.svc.ListBalances(ctx, addrA)
		assertAppError(t, err, apperror.CodeNotFound)
	})

	t.Run("returns rows", func(t *testing.T) {
		d := setupWalletService(t)
		ctx := context.Background()
		rows := []domain.Balance{
			{Address: addrA, CurrencyID: btcID, Amount: decimal.NewFromInt(1), UpdatedAt: time.Now()},
			{Address: addrA, CurrencyID: usdID, Amount: decimal.NewFromInt(2), UpdatedAt: time.Now()},
		}
		d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil)
		d.balanceRepo.EXPECT().ListByAddress(ctx, addrA).Return(rows, nil)

		got, err := d.svc.ListBalances(ctx, addrA)
		require.NoError(t, err)
		assert.Equal(t, rows, got)
	})
}

func TestWalletService_History(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	w := &domain.Wallet{Address: addrA, Status: domain.WalletStatusBlocked}

	d.walletRepo.EXPECT().GetByAddress(ctx, addrA).Return(w, nil).Times(3)
	d.movementRepo.EXPECT().ListByAddress(ctx, addrA).Return(nil, nil)
	d.conversionRepo.EXPECT().ListByAddress(ctx, addrA).Return([]domain.Conversion{{ID: 1}}, nil)
	d.transferRepo.EXPECT().ListByAddress(ctx, addrA).Return(nil, errors.New("timeout"))

	movements, err := d.svc.ListMovements(ctx, addrA)
	require.NoError(t, err)
	assert.NotNil(t, movements)

	conversions, err := d.svc.ListConversions(ctx, addrA)
	require.NoError(t, err)
	assert.Len(t, conversions, 1)

	_, err = d.svc.ListTransfers(ctx, addrA)
	assertAppError(t, err, apperror.CodeInternal)
}

func TestWalletService_GetTransfer(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()

	d.transferRepo.EXPECT().GetByID(ctx, int64(9)).Return(&domain.Transfer{ID: 9, SourceAddress: addrA, DestAddress: addrB}, nil)
	d.transferRepo.EXPECT().GetByID(ctx, int64(10)).Return(nil, nil)

	tr, err := d.svc.GetTransfer(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, addrB, tr.DestAddress)

	_, err = d.svc.GetTransfer(ctx, 10)
	assertAppError(t, err, apperror.CodeNotFound)
}
