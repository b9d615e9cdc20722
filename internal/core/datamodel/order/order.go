package order

import "time"

type Status string

const (
	StatusIssued    Status = "ISSUED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type Order struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	OrderNumber string `gorm:"column:order_number;uniqueIndex;not null"`
	UserID      string `gorm:"column:user_id;index;not null"`

	TotalAmountCents int64  `gorm:"column:total_amount_cents;not null"`
	Currency         string `gorm:"column:currency;not null"`

	Status        Status        `gorm:"column:status;not null;default:ISSUED"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;not null;default:UNPAID"`

	PaidAt *time.Time `gorm:"column:paid_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
