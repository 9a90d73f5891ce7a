package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService.
//
// Each operation validates its input and resolves any exchange rate before
// opening a transaction, then locks the touched balance rows in
// domain.LockOrder and re-checks sufficiency against the locked values.
type LedgerServiceImpl struct {
	walletRepo     ports.WalletRepository
	balanceRepo    ports.BalanceRepository
	movementRepo   ports.MovementRepository
	conversionRepo ports.ConversionRepository
	transferRepo   ports.TransferRepository
	currencyRepo   ports.CurrencyRepository
	rates          ports.RateProvider
	hashSvc        ports.HashService
	transactor     ports.DBTransactor
	fees           domain.FeePolicy
	retries        int
	now            func() time.Time
	log            zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. conflictRetries is how
// many times a transaction aborted by a concurrent update is run again.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	balanceRepo ports.BalanceRepository,
	movementRepo ports.MovementRepository,
	conversionRepo ports.ConversionRepository,
	transferRepo ports.TransferRepository,
	currencyRepo ports.CurrencyRepository,
	rates ports.RateProvider,
	hashSvc ports.HashService,
	transactor ports.DBTransactor,
	fees domain.FeePolicy,
	conflictRetries int,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo:     walletRepo,
		balanceRepo:    balanceRepo,
		movementRepo:   movementRepo,
		conversionRepo: conversionRepo,
		transferRepo:   transferRepo,
		currencyRepo:   currencyRepo,
		rates:          rates,
		hashSvc:        hashSvc,
		transactor:     transactor,
		fees:           fees,
		retries:        conflictRetries,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log,
	}
}

// Deposit credits a wallet. No secret is required.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*ports.DepositResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if _, err := s.activeWallet(ctx, req.Address); err != nil {
		return nil, err
	}
	if _, err := s.currency(ctx, req.CurrencyID); err != nil {
		return nil, err
	}

	var result *ports.DepositResult
	err := s.runTx(ctx, "deposit", func(tx pgx.Tx) error {
		if err := s.gate(ctx, tx, req.Address); err != nil {
			return err
		}

		balance, err := s.balanceRepo.Credit(ctx, tx, req.Address, req.CurrencyID, req.Amount)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

		m := &domain.Movement{
			Address:    req.Address,
			CurrencyID: req.CurrencyID,
			Kind:       domain.MovementKindDeposit,
			Amount:     req.Amount,
			Fee:        decimal.Zero,
			OccurredAt: s.now(),
		}
		if err := s.movementRepo.Create(ctx, tx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		result = &ports.DepositResult{
			MovementID: m.ID,
			Address:    m.Address,
			CurrencyID: m.CurrencyID,
			Amount:     m.Amount,
			OccurredAt: m.OccurredAt,
			Balance:    balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("movement_id", result.MovementID).
		Str("address", result.Address).
		Int64("currency_id", result.CurrencyID).
		Str("amount", result.Amount.String()).
		Msg("deposit booked")

	return result, nil
}

// Withdraw debits amount plus the withdrawal fee.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawalRequest) (*ports.WithdrawalResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	wallet, err := s.activeWallet(ctx, req.Address)
	if err != nil {
		return nil, err
	}
	if err := s.verifySecret(wallet, req.SecretHash); err != nil {
		return nil, err
	}
	if _, err := s.currency(ctx, req.CurrencyID); err != nil {
		return nil, err
	}

	fee := s.fees.WithdrawalFee(req.Amount)
	total := req.Amount.Add(fee)
	key := domain.BalanceKey{Address: req.Address, CurrencyID: req.CurrencyID}

	var result *ports.WithdrawalResult
	err = s.runTx(ctx, "withdrawal", func(tx pgx.Tx) error {
		if err := s.gate(ctx, tx, req.Address); err != nil {
			return err
		}

		locked, err := s.lockBalances(ctx, tx, key)
		if err != nil {
			return err
		}
		if locked[key].LessThan(total) {
			return apperror.ErrInsufficientFunds()
		}

		balance, err := s.debit(ctx, tx, key, total)
		if err != nil {
			return err
		}

		m := &domain.Movement{
			Address:    req.Address,
			CurrencyID: req.CurrencyID,
			Kind:       domain.MovementKindWithdrawal,
			Amount:     req.Amount,
			Fee:        fee,
			OccurredAt: s.now(),
		}
		if err := s.movementRepo.Create(ctx, tx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		result = &ports.WithdrawalResult{
			MovementID: m.ID,
			Address:    m.Address,
			CurrencyID: m.CurrencyID,
			Amount:     m.Amount,
			FeeRate:    s.fees.WithdrawalRate,
			Fee:        fee,
			OccurredAt: m.OccurredAt,
			Balance:    balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("movement_id", result.MovementID).
		Str("address", result.Address).
		Int64("currency_id", result.CurrencyID).
		Str("amount", result.Amount.String()).
		Str("fee", result.Fee.String()).
		Msg("withdrawal booked")

	return result, nil
}

// Convert exchanges part of one currency balance for another within a wallet.
func (s *LedgerServiceImpl) Convert(ctx context.Context, req ports.ConversionRequest) (*ports.ConversionResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.SourceCurrencyID == req.DestCurrencyID {
		return nil, apperror.ErrInvalidRequest("source and destination currencies must differ")
	}
	wallet, err := s.activeWallet(ctx, req.Address)
	if err != nil {
		return nil, err
	}
	if err := s.verifySecret(wallet, req.SecretHash); err != nil {
		return nil, err
	}
	src, err := s.currency(ctx, req.SourceCurrencyID)
	if err != nil {
		return nil, err
	}
	dst, err := s.currency(ctx, req.DestCurrencyID)
	if err != nil {
		return nil, err
	}

	// Resolved outside the transaction so no row lock is held across the
	// network call.
	rate, err := resolveRate(ctx, s.rates, src.Code, dst.Code, s.log)
	if err != nil {
		return nil, err
	}

	destAmount := s.fees.ConvertedAmount(req.Amount, rate)
	if !destAmount.IsPositive() {
		return nil, apperror.Validation("amount is too small to convert at the current rate")
	}

	srcKey := domain.BalanceKey{Address: req.Address, CurrencyID: req.SourceCurrencyID}
	dstKey := domain.BalanceKey{Address: req.Address, CurrencyID: req.DestCurrencyID}

	var result *ports.ConversionResult
	err = s.runTx(ctx, "conversion", func(tx pgx.Tx) error {
		if err := s.gate(ctx, tx, req.Address); err != nil {
			return err
		}

		locked, err := s.lockBalances(ctx, tx, srcKey, dstKey)
		if err != nil {
			return err
		}
		if locked[srcKey].LessThan(req.Amount) {
			return apperror.ErrInsufficientFunds()
		}

		srcBalance, err := s.debit(ctx, tx, srcKey, req.Amount)
		if err != nil {
			return err
		}
		dstBalance, err := s.balanceRepo.Credit(ctx, tx, dstKey.Address, dstKey.CurrencyID, destAmount)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

		now := s.now()
		conv := &domain.Conversion{
			Address:          req.Address,
			SourceCurrencyID: req.SourceCurrencyID,
			DestCurrencyID:   req.DestCurrencyID,
			SourceAmount:     req.Amount,
			DestAmount:       destAmount,
			FeePercent:       s.fees.ConversionPercent,
			Rate:             rate,
			OccurredAt:       now,
		}
		if err := s.conversionRepo.Create(ctx, tx, conv); err != nil {
			return fmt.Errorf("create conversion: %w", err)
		}

		legs := []*domain.Movement{
			{
				Address:      req.Address,
				CurrencyID:   req.SourceCurrencyID,
				Kind:         domain.MovementKindWithdrawal,
				Amount:       req.Amount,
				Fee:          decimal.Zero,
				ConversionID: &conv.ID,
				OccurredAt:   now,
			},
			{
				Address:      req.Address,
				CurrencyID:   req.DestCurrencyID,
				Kind:         domain.MovementKindDeposit,
				Amount:       destAmount,
				Fee:          decimal.Zero,
				ConversionID: &conv.ID,
				OccurredAt:   now,
			},
		}
		for _, m := range legs {
			if err := s.movementRepo.Create(ctx, tx, m); err != nil {
				return fmt.Errorf("create conversion movement: %w", err)
			}
		}

		result = &ports.ConversionResult{
			ConversionID:     conv.ID,
			Address:          conv.Address,
			SourceCurrencyID: conv.SourceCurrencyID,
			DestCurrencyID:   conv.DestCurrencyID,
			SourceAmount:     conv.SourceAmount,
			DestAmount:       conv.DestAmount,
			FeePercent:       conv.FeePercent,
			Rate:             conv.Rate,
			OccurredAt:       now,
			SourceBalance:    srcBalance,
			DestBalance:      dstBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("conversion_id", result.ConversionID).
		Str("address", result.Address).
		Str("pair", src.Code+"/"+dst.Code).
		Str("source_amount", result.SourceAmount.String()).
		Str("dest_amount", result.DestAmount.String()).
		Str("rate", result.Rate.String()).
		Msg("conversion booked")

	return result, nil
}

// Transfer moves amount between two wallets. The fee is debited from the
// source on top of amount and is not credited anywhere.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.SourceAddress == req.DestAddress {
		return nil, apperror.ErrInvalidRequest("source and destination wallets must differ")
	}
	source, err := s.activeWallet(ctx, req.SourceAddress)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeWallet(ctx, req.DestAddress); err != nil {
		return nil, err
	}
	if err := s.verifySecret(source, req.SecretHash); err != nil {
		return nil, err
	}
	if _, err := s.currency(ctx, req.CurrencyID); err != nil {
		return nil, err
	}

	fee := s.fees.TransferFee(req.Amount)
	total := req.Amount.Add(fee)
	srcKey := domain.BalanceKey{Address: req.SourceAddress, CurrencyID: req.CurrencyID}
	dstKey := domain.BalanceKey{Address: req.DestAddress, CurrencyID: req.CurrencyID}

	var result *ports.TransferResult
	err = s.runTx(ctx, "transfer", func(tx pgx.Tx) error {
		if err := s.gate(ctx, tx, req.SourceAddress, req.DestAddress); err != nil {
			return err
		}

		locked, err := s.lockBalances(ctx, tx, srcKey, dstKey)
		if err != nil {
			return err
		}
		if locked[srcKey].LessThan(total) {
			return apperror.ErrInsufficientFunds()
		}

		srcBalance, err := s.debit(ctx, tx, srcKey, total)
		if err != nil {
			return err
		}
		dstBalance, err := s.balanceRepo.Credit(ctx, tx, dstKey.Address, dstKey.CurrencyID, req.Amount)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

		t := &domain.Transfer{
			SourceAddress: req.SourceAddress,
			DestAddress:   req.DestAddress,
			CurrencyID:    req.CurrencyID,
			Amount:        req.Amount,
			Fee:           fee,
			OccurredAt:    s.now(),
		}
		if err := s.transferRepo.Create(ctx, tx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}

		result = &ports.TransferResult{
			TransferID:    t.ID,
			SourceAddress: t.SourceAddress,
			DestAddress:   t.DestAddress,
			CurrencyID:    t.CurrencyID,
			Amount:        t.Amount,
			Fee:           t.Fee,
			OccurredAt:    t.OccurredAt,
			SourceBalance: srcBalance,
			DestBalance:   dstBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("transfer_id", result.TransferID).
		Str("source", result.SourceAddress).
		Str("dest", result.DestAddress).
		Int64("currency_id", result.CurrencyID).
		Str("amount", result.Amount.String()).
		Str("fee", result.Fee.String()).
		Msg("transfer booked")

	return result, nil
}

// runTx runs fn in its own transaction. Application errors are returned as
// is; a retryable store conflict runs fn again in a fresh transaction up to
// the configured number of times.
func (s *LedgerServiceImpl) runTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.inTx(ctx, fn)
		if err == nil {
			return nil
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		if !s.transactor.Retryable(err) {
			return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
		}
		if attempt >= s.retries {
			return apperror.ErrConflict(fmt.Errorf("%s: %w", op, err))
		}

		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("concurrent update conflict, retrying")
	}
}

func (s *LedgerServiceImpl) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// gate re-reads each wallet under a shared lock so a concurrent block
// cannot interleave with the mutation.
func (s *LedgerServiceImpl) gate(ctx context.Context, tx pgx.Tx, addresses ...string) error {
	sorted := append([]string(nil), addresses...)
	sort.Strings(sorted)
	for _, addr := range sorted {
		w, err := s.walletRepo.GetForShare(ctx, tx, addr)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if w == nil {
			return apperror.ErrNotFound("wallet")
		}
		if !w.IsActive() {
			return apperror.ErrBlocked(addr)
		}
	}
	return nil
}

// lockBalances locks every key in LockOrder and returns the locked amounts.
// Absent rows read as zero.
func (s *LedgerServiceImpl) lockBalances(ctx context.Context, tx pgx.Tx, keys ...domain.BalanceKey) (map[domain.BalanceKey]decimal.Decimal, error) {
	locked := make(map[domain.BalanceKey]decimal.Decimal, len(keys))
	for _, k := range domain.LockOrder(keys...) {
		b, err := s.balanceRepo.GetForUpdate(ctx, tx, k.Address, k.CurrencyID)
		if err != nil {
			return nil, fmt.Errorf("lock balance: %w", err)
		}
		if b == nil {
			locked[k] = decimal.Zero
			continue
		}
		locked[k] = b.Amount
	}
	return locked, nil
}

func (s *LedgerServiceImpl) debit(ctx context.Context, tx pgx.Tx, key domain.BalanceKey, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.balanceRepo.Debit(ctx, tx, key.Address, key.CurrencyID, amount)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientBalance) {
			return decimal.Zero, apperror.ErrInsufficientFunds()
		}
		return decimal.Zero, fmt.Errorf("debit balance: %w", err)
	}
	return balance, nil
}

func (s *LedgerServiceImpl) activeWallet(ctx context.Context, address string) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !w.IsActive() {
		return nil, apperror.ErrBlocked(address)
	}
	return w, nil
}

func (s *LedgerServiceImpl) verifySecret(w *domain.Wallet, secretHash string) error {
	if secretHash == "" || !s.hashSvc.Equal(secretHash, w.SecretHash) {
		return apperror.ErrInvalidSecret()
	}
	return nil
}

func (s *LedgerServiceImpl) currency(ctx context.Context, id int64) (*domain.Currency, error) {
	c, err := s.currencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get currency: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("currency")
	}
	return c, nil
}

func validateAmount(amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return apperror.ErrInvalidAmount()
	}
	return nil
}
