package ledger

import (
	"context"

	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
)

// Repository persists append-only ledger entries. Append must serialize
// concurrent writes for the same user so no two entries ever observe the same
// balance_before; implementations enforce that with storage-level locks, not
// application checks.
type Repository interface {
	// Append computes balance_before/balance_after from the newest entry and
	// inserts exactly one immutable row. It returns ErrInsufficientFunds when
	// the resulting balance would drop below minBalance.
	Append(ctx context.Context, ledgerType ledgerdm.Type, entry *ledgerdm.Entry, minBalance int64) error

	// LatestEntry returns the newest entry for the user, or nil when the
	// ledger is empty.
	LatestEntry(ctx context.Context, ledgerType ledgerdm.Type, userID string) (*ledgerdm.Entry, error)

	// ListEntries pages newest-first. cursor is the id of the last entry the
	// caller has seen; zero starts from the top.
	ListEntries(ctx context.Context, ledgerType ledgerdm.Type, userID string, cursor int64, limit int) ([]ledgerdm.Entry, error)
}
