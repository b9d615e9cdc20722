package booking

import (
	"context"
	"time"

	bookingdm "github.com/altayar/tourism-backend/internal/core/datamodel/booking"
)

// Repository covers what payment initiation and post-payment confirmation
// need from bookings. Booking creation/search belongs to the booking API
// service and is out of scope here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*bookingdm.Booking, error)

	// MarkPaid confirms the booking after a successful payment: status
	// CONFIRMED, payment_status PAID, confirmed_at/paid_at stamped.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
}
