package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/altayar/tourism-backend/internal"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	paymentpkg "github.com/altayar/tourism-backend/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *paymentdm.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*paymentdm.Payment, error) {
	var p paymentdm.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByProviderInvoiceID(ctx context.Context, invoiceID string) (*paymentdm.Payment, error) {
	var p paymentdm.Payment
	err := r.db.WithContext(ctx).Where("provider_invoice_id = ?", invoiceID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]paymentdm.Payment, error) {
	var payments []paymentdm.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) Update(ctx context.Context, p *paymentdm.Payment) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(p).Error
}

// NextSequence allocates the monotonic part of payment numbers. Postgres
// owns a real sequence; the sqlite path (tests) falls back to a count, which
// is fine single-writer.
func (r *PaymentRepository) NextSequence(ctx context.Context) (int64, error) {
	if r.db.Dialector.Name() == "postgres" {
		var seq int64
		err := r.db.WithContext(ctx).Raw("SELECT nextval('payment_number_seq')").Scan(&seq).Error
		return seq, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&paymentdm.Payment{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count + 1, nil
}
