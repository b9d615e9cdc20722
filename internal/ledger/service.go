package ledger

import (
	"context"
	"log/slog"

	"github.com/altayar/tourism-backend/internal"
	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
)

const defaultPageSize = 50

// Service exposes the balance and history reads plus the append operation for
// the three ledgers. The running balance is always derived from the newest
// entry, never from a stored total.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// balanceFloor is the minimum balance every ledger tolerates: wallet
// withdrawals and points redemptions may never overdraw.
const balanceFloor int64 = 0

func (s *Service) Append(ctx context.Context, userID string, ledgerType ledgerdm.Type, amount int64, referenceType, referenceID, description string) (*ledgerdm.Entry, error) {
	if !ledgerType.Valid() {
		return nil, internal.ErrInvalidLedgerType
	}
	if amount == 0 {
		return nil, internal.NewValidationError("amount must be nonzero", internal.ErrCodeInvalidAmount)
	}

	entry := &ledgerdm.Entry{
		UserID:        userID,
		Amount:        amount,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		Description:   description,
	}

	if err := s.repo.Append(ctx, ledgerType, entry, balanceFloor); err != nil {
		s.logger.Error("ledger append failed",
			"ledger_type", ledgerType,
			"user_id", userID,
			"amount", amount,
			"error", err)
		return nil, err
	}

	s.logger.Info("ledger entry appended",
		"ledger_type", ledgerType,
		"user_id", userID,
		"amount", amount,
		"balance_after", entry.BalanceAfter)

	return entry, nil
}

// CurrentBalance is the balance_after of the user's newest entry, zero when
// the ledger has none.
func (s *Service) CurrentBalance(ctx context.Context, userID string, ledgerType ledgerdm.Type) (int64, error) {
	if !ledgerType.Valid() {
		return 0, internal.ErrInvalidLedgerType
	}

	latest, err := s.repo.LatestEntry(ctx, ledgerType, userID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return latest.BalanceAfter, nil
}

// ListEntries returns a newest-first page and the cursor to resume from, or
// zero when the page was the last one.
func (s *Service) ListEntries(ctx context.Context, userID string, ledgerType ledgerdm.Type, cursor int64, limit int) ([]ledgerdm.Entry, int64, error) {
	if !ledgerType.Valid() {
		return nil, 0, internal.ErrInvalidLedgerType
	}
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	entries, err := s.repo.ListEntries(ctx, ledgerType, userID, cursor, limit)
	if err != nil {
		return nil, 0, err
	}

	var nextCursor int64
	if len(entries) == limit {
		nextCursor = entries[len(entries)-1].ID
	}
	return entries, nextCursor, nil
}
