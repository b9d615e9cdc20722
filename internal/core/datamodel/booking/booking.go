package booking

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Booking is the slice of the booking aggregate the payment flow touches:
// enough to confirm it once its payment lands.
type Booking struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	BookingNumber string `gorm:"column:booking_number;uniqueIndex;not null"`
	UserID        string `gorm:"column:user_id;index;not null"`

	TitleEN string `gorm:"column:title_en"`
	TitleAR string `gorm:"column:title_ar"`

	TotalAmountCents int64  `gorm:"column:total_amount_cents;not null"`
	Currency         string `gorm:"column:currency;not null"`

	Status        Status        `gorm:"column:status;not null;default:PENDING"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;not null;default:UNPAID"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	PaidAt      *time.Time `gorm:"column:paid_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}
