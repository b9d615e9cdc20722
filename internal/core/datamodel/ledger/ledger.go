package ledger

import "time"

type Type string

const (
	TypeWallet   Type = "wallet"
	TypePoints   Type = "points"
	TypeCashback Type = "cashback"
)

func (t Type) Valid() bool {
	switch t {
	case TypeWallet, TypePoints, TypeCashback:
		return true
	}
	return false
}

// TableName maps a ledger type onto its physical table. Each ledger keeps its
// own table so per-type indexes and retention stay independent.
func (t Type) TableName() string {
	switch t {
	case TypeWallet:
		return "wallet_ledger_entries"
	case TypePoints:
		return "points_ledger_entries"
	default:
		return "cashback_ledger_entries"
	}
}

// Entry is one immutable balance-affecting event. Rows are only ever
// inserted; the current balance is the BalanceAfter of the newest entry.
// Amounts are signed minor units (cents for wallet/cashback, whole points
// for the points ledger).
type Entry struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"column:user_id;index;not null"`

	Amount        int64 `gorm:"column:amount;not null"`
	BalanceBefore int64 `gorm:"column:balance_before;not null"`
	BalanceAfter  int64 `gorm:"column:balance_after;not null"`

	ReferenceType string `gorm:"column:reference_type;index"`
	ReferenceID   string `gorm:"column:reference_id;index"`
	Description   string `gorm:"column:description"`

	CreatedAt time.Time `gorm:"column:created_at"`
}
