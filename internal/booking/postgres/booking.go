package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/altayar/tourism-backend/internal"
	bookingpkg "github.com/altayar/tourism-backend/internal/booking"
	bookingdm "github.com/altayar/tourism-backend/internal/core/datamodel/booking"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) bookingpkg.Repository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*bookingdm.Booking, error) {
	var b bookingdm.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&bookingdm.Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         bookingdm.StatusConfirmed,
			"payment_status": bookingdm.PaymentPaid,
			"confirmed_at":   paidAt,
			"paid_at":        paidAt,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrBookingNotFound
	}
	return nil
}
