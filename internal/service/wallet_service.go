package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxAddressAttempts = 3

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo     ports.WalletRepository
	balanceRepo    ports.BalanceRepository
	movementRepo   ports.MovementRepository
	conversionRepo ports.ConversionRepository
	transferRepo   ports.TransferRepository
	currencyRepo   ports.CurrencyRepository
	keyGen         ports.KeyGenerator
	hashSvc        ports.HashService
	now            func() time.Time
	log            zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	balanceRepo ports.BalanceRepository,
	movementRepo ports.MovementRepository,
	conversionRepo ports.ConversionRepository,
	transferRepo ports.TransferRepository,
	currencyRepo ports.CurrencyRepository,
	keyGen ports.KeyGenerator,
	hashSvc ports.HashService,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo:     walletRepo,
		balanceRepo:    balanceRepo,
		movementRepo:   movementRepo,
		conversionRepo: conversionRepo,
		transferRepo:   transferRepo,
		currencyRepo:   currencyRepo,
		keyGen:         keyGen,
		hashSvc:        hashSvc,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log,
	}
}

// Create generates key material and stores the wallet with the hashed key.
// The cleartext private key is only ever returned here.
func (s *WalletServiceImpl) Create(ctx context.Context) (*ports.CreatedWallet, error) {
	for attempt := 1; attempt <= maxAddressAttempts; attempt++ {
		address, privateKey, err := s.keyGen.Generate()
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate keys: %w", err))
		}

		w := &domain.Wallet{
			Address:    address,
			SecretHash: s.hashSvc.Hash(privateKey),
			Status:     domain.WalletStatusActive,
			CreatedAt:  s.now(),
		}

		err = s.walletRepo.Create(ctx, w)
		if errors.Is(err, ports.ErrDuplicateAddress) {
			s.log.Warn().Str("address", address).Int("attempt", attempt).Msg("address collision, regenerating")
			continue
		}
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
		}

		s.log.Info().Str("address", w.Address).Msg("wallet created")
		return &ports.CreatedWallet{Wallet: *w, PrivateKey: privateKey}, nil
	}

	return nil, apperror.InternalError(fmt.Errorf("no unique address after %d attempts", maxAddressAttempts))
}

func (s *WalletServiceImpl) Get(ctx context.Context, address string) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

func (s *WalletServiceImpl) List(ctx context.Context) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list wallets: %w", err))
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	return wallets, nil
}

// SetStatus changes a wallet's status. Unblocking is rejected.
func (s *WalletServiceImpl) SetStatus(ctx context.Context, address string, status domain.WalletStatus) (*domain.Wallet, error) {
	if !status.Valid() {
		return nil, apperror.ErrInvalidRequest(fmt.Sprintf("unknown wallet status %q", status))
	}

	current, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	if !current.CanTransitionTo(status) {
		return nil, apperror.ErrInvalidRequest("a blocked wallet cannot be reactivated")
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.walletRepo.UpdateStatus(ctx, address, status)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update wallet status: %w", err))
	}
	if updated == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	s.log.Info().Str("address", address).Str("status", string(status)).Msg("wallet status changed")
	return updated, nil
}

func (s *WalletServiceImpl) Block(ctx context.Context, address string) (*domain.Wallet, error) {
	return s.SetStatus(ctx, address, domain.WalletStatusBlocked)
}

// HashSecret derives the hash callers present in place of the private key.
func (s *WalletServiceImpl) HashSecret(privateKey string) string {
	return s.hashSvc.Hash(privateKey)
}

func (s *WalletServiceImpl) VerifySecret(ctx context.Context, address string, secretHash string) (bool, error) {
	w, err := s.Get(ctx, address)
	if err != nil {
		return false, err
	}
	return secretHash != "" && s.hashSvc.Equal(secretHash, w.SecretHash), nil
}

// GetBalance returns one balance. A currency the wallet never held reads as zero.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, address string, currencyID int64) (*domain.Balance, error) {
	if _, err := s.Get(ctx, address); err != nil {
		return nil, err
	}
	c, err := s.currencyRepo.GetByID(ctx, currencyID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get currency: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("currency")
	}

	b, err := s.balanceRepo.Get(ctx, address, currencyID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get balance: %w", err))
	}
	if b == nil {
		return &domain.Balance{Address: address, CurrencyID: currencyID, Amount: decimal.Zero}, nil
	}
	return b, nil
}

// ListBalances returns every balance row of the wallet, NotFound when it has none.
func (s *WalletServiceImpl) ListBalances(ctx context.Context, address string) ([]domain.Balance, error) {
	if _, err := s.Get(ctx, address); err != nil {
		return nil, err
	}
	balances, err := s.balanceRepo.ListByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list balances: %w", err))
	}
	if len(balances) == 0 {
		return nil, apperror.ErrNotFound("balances")
	}
	return balances, nil
}

func (s *WalletServiceImpl) ListMovements(ctx context.Context, address string) ([]domain.Movement, error) {
	if _, err := s.Get(ctx, address); err != nil {
		return nil, err
	}
	movements, err := s.movementRepo.ListByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list movements: %w", err))
	}
	if movements == nil {
		movements = []domain.Movement{}
	}
	return movements, nil
}

func (s *WalletServiceImpl) ListConversions(ctx context.Context, address string) ([]domain.Conversion, error) {
	if _, err := s.Get(ctx, address); err != nil {
		return nil, err
	}
	conversions, err := s.conversionRepo.ListByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list conversions: %w", err))
	}
	if conversions == nil {
		conversions = []domain.Conversion{}
	}
	return conversions, nil
}

func (s *WalletServiceImpl) ListTransfers(ctx context.Context, address string) ([]domain.Transfer, error) {
	if _, err := s.Get(ctx, address); err != nil {
		return nil, err
	}
	transfers, err := s.transferRepo.ListByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transfers: %w", err))
	}
	if transfers == nil {
		transfers = []domain.Transfer{}
	}
	return transfers, nil
}

func (s *WalletServiceImpl) GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error) {
	t, err := s.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transfer: %w", err))
	}
	if t == nil {
		return nil, apperror.ErrNotFound("transfer")
	}
	return t, nil
}
