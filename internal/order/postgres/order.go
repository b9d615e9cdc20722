package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/altayar/tourism-backend/internal"
	orderdm "github.com/altayar/tourism-backend/internal/core/datamodel/order"
	orderpkg "github.com/altayar/tourism-backend/internal/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) orderpkg.Repository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*orderdm.Order, error) {
	var o orderdm.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&orderdm.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         orderdm.StatusPaid,
			"payment_status": orderdm.PaymentPaid,
			"paid_at":        paidAt,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrOrderNotFound
	}
	return nil
}
