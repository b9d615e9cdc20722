package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/altayar/tourism-backend/internal"
	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
	ledgerpkg "github.com/altayar/tourism-backend/internal/ledger"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledgerpkg.Repository {
	return &LedgerRepository{db: db}
}

// NewTxLedgerRepository binds the repository to an already-open transaction so
// ledger writes can share it with payment status writes.
func NewTxLedgerRepository(tx *gorm.DB) ledgerpkg.Repository {
	return &LedgerRepository{db: tx}
}

func (r *LedgerRepository) Append(ctx context.Context, ledgerType ledgerdm.Type, entry *ledgerdm.Entry, minBalance int64) error {
	if !ledgerType.Valid() {
		return internal.ErrInvalidLedgerType
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return appendInTx(tx, ledgerType, entry, minBalance)
	})
}

// appendInTx does the locked read-compute-insert inside the caller's
// transaction. Postgres serializes concurrent appends for one user with an
// advisory lock keyed on ledger table + user id; the row lock on the latest
// entry alone cannot cover the first-ever append, which has no row to lock.
// sqlite (tests) serializes writers on its own.
func appendInTx(tx *gorm.DB, ledgerType ledgerdm.Type, entry *ledgerdm.Entry, minBalance int64) error {
	if tx.Dialector.Name() == "postgres" {
		lockKey := fmt.Sprintf("%s:%s", ledgerType.TableName(), entry.UserID)
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Error; err != nil {
			return err
		}
	}

	var last ledgerdm.Entry
	query := tx.Table(ledgerType.TableName()).
		Where("user_id = ?", entry.UserID).
		Order("id DESC")
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var balanceBefore int64
	err := query.First(&last).Error
	switch {
	case err == nil:
		balanceBefore = last.BalanceAfter
	case errors.Is(err, gorm.ErrRecordNotFound):
		balanceBefore = 0
	default:
		return err
	}

	balanceAfter := balanceBefore + entry.Amount
	if balanceAfter < minBalance {
		return internal.ErrInsufficientFunds
	}

	entry.ID = 0
	entry.BalanceBefore = balanceBefore
	entry.BalanceAfter = balanceAfter
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return tx.Table(ledgerType.TableName()).Create(entry).Error
}

func (r *LedgerRepository) LatestEntry(ctx context.Context, ledgerType ledgerdm.Type, userID string) (*ledgerdm.Entry, error) {
	if !ledgerType.Valid() {
		return nil, internal.ErrInvalidLedgerType
	}
	var entry ledgerdm.Entry
	err := r.db.WithContext(ctx).
		Table(ledgerType.TableName()).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) ListEntries(ctx context.Context, ledgerType ledgerdm.Type, userID string, cursor int64, limit int) ([]ledgerdm.Entry, error) {
	if !ledgerType.Valid() {
		return nil, internal.ErrInvalidLedgerType
	}
	query := r.db.WithContext(ctx).
		Table(ledgerType.TableName()).
		Where("user_id = ?", userID)
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	var entries []ledgerdm.Entry
	err := query.Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
