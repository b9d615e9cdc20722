package postgres

import (
	"context"

	"gorm.io/gorm"

	bookingpg "github.com/altayar/tourism-backend/internal/booking/postgres"
	ledgerpg "github.com/altayar/tourism-backend/internal/ledger/postgres"
	membershippg "github.com/altayar/tourism-backend/internal/membership/postgres"
	orderpg "github.com/altayar/tourism-backend/internal/order/postgres"
	paymentpkg "github.com/altayar/tourism-backend/internal/payment"
)

// UnitOfWork runs a callback against repositories bound to one transaction.
// The webhook processor uses it so the payment status write, post-payment
// actions, ledger entries and log completion commit atomically.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) paymentpkg.UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(tx paymentpkg.TxRepos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(paymentpkg.TxRepos{
			Payments:    NewPaymentRepository(tx),
			WebhookLogs: NewWebhookLogRepository(tx),
			Bookings:    bookingpg.NewBookingRepository(tx),
			Orders:      orderpg.NewOrderRepository(tx),
			Memberships: membershippg.NewMembershipRepository(tx),
			Ledger:      ledgerpg.NewTxLedgerRepository(tx),
		})
	})
}
