package service

import (
	"context"
	"log/slog"

	"funds-ledger/internal/domain"
	"funds-ledger/internal/errors"
	"funds-ledger/internal/ledger"
)

// FundsService is the operation surface consumed by the transport adapter
// and the load harness. Validation and logging live here; the concurrency
// discipline lives in the ledger underneath.
type FundsService struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

func NewFundsService(l *ledger.Ledger, logger *slog.Logger) *FundsService {
	return &FundsService{
		ledger: l,
		logger: logger,
	}
}

func (s *FundsService) Deposit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if accountID == "" {
		return 0, errors.NewAppError(errors.InvalidInput, "accountId is required")
	}

	balance, err := s.ledger.Deposit(ctx, accountID, amount)
	if err != nil {
		s.logger.Error("deposit failed", "account_id", accountID, "amount", amount, "error", err)
		return 0, err
	}

	s.logger.Info("deposit applied", "account_id", accountID, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *FundsService) AuthorizeWithdrawal(ctx context.Context, accountID string, amount int64) (domain.Hold, error) {
	if accountID == "" {
		return domain.Hold{}, errors.NewAppError(errors.InvalidInput, "accountId is required")
	}

	hold, err := s.ledger.Authorize(ctx, accountID, amount)
	if err != nil {
		s.logger.Info("withdrawal authorization rejected", "account_id", accountID, "amount", amount, "error", err)
		return domain.Hold{}, err
	}

	s.logger.Info("withdrawal authorized",
		"account_id", accountID,
		"amount", amount,
		"hold_id", hold.ID,
		"expires_at", hold.ExpiresAt)
	return hold, nil
}

// CommitWithdrawal consumes a specific hold. A retry after a client timeout
// may observe unknown_hold even though the first attempt committed; callers
// should treat that as ambiguous and reconcile via GetBalance.
func (s *FundsService) CommitWithdrawal(ctx context.Context, accountID, holdID string) (int64, error) {
	if accountID == "" || holdID == "" {
		return 0, errors.NewAppError(errors.InvalidInput, "accountId and holdId are required")
	}

	balance, err := s.ledger.Commit(ctx, accountID, holdID)
	if err != nil {
		s.logger.Info("withdrawal commit rejected", "account_id", accountID, "hold_id", holdID, "error", err)
		return 0, err
	}

	s.logger.Info("withdrawal committed", "account_id", accountID, "hold_id", holdID, "balance", balance)
	return balance, nil
}

// CommitWithdrawalByAmount consumes the oldest active hold with exactly the
// given amount, for clients that do not track hold ids.
func (s *FundsService) CommitWithdrawalByAmount(ctx context.Context, accountID string, amount int64) (int64, error) {
	if accountID == "" {
		return 0, errors.NewAppError(errors.InvalidInput, "accountId is required")
	}

	balance, err := s.ledger.CommitMatching(ctx, accountID, amount)
	if err != nil {
		s.logger.Info("withdrawal commit rejected", "account_id", accountID, "amount", amount, "error", err)
		return 0, err
	}

	s.logger.Info("withdrawal committed", "account_id", accountID, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *FundsService) ReleaseWithdrawal(ctx context.Context, accountID, holdID string) error {
	if accountID == "" || holdID == "" {
		return errors.NewAppError(errors.InvalidInput, "accountId and holdId are required")
	}

	if err := s.ledger.Release(ctx, accountID, holdID); err != nil {
		s.logger.Info("withdrawal release rejected", "account_id", accountID, "hold_id", holdID, "error", err)
		return err
	}

	s.logger.Info("withdrawal released", "account_id", accountID, "hold_id", holdID)
	return nil
}

// GetBalance is a gate-free snapshot read. Unknown accounts report zero.
func (s *FundsService) GetBalance(accountID string) domain.Account {
	return domain.Account{
		AccountID: accountID,
		Balance:   s.ledger.Balance(accountID),
	}
}
