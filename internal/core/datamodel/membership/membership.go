package membership

import "time"

// Plan is a membership tier. CashbackRate is a percentage of the paid amount
// credited to the cashback ledger; PointsMultiplier scales earned points.
type Plan struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	TierCode  string `gorm:"column:tier_code;uniqueIndex;not null"`
	TierName  string `gorm:"column:tier_name;not null"`
	TierOrder int    `gorm:"column:tier_order;not null"`

	PriceCents int64  `gorm:"column:price_cents;not null;default:0"`
	Currency   string `gorm:"column:currency;not null;default:USD"`

	DurationDays     *int    `gorm:"column:duration_days"` // nil means non-expiring
	InitialPoints    int64   `gorm:"column:initial_points;not null;default:0"`
	CashbackRate     float64 `gorm:"column:cashback_rate;not null;default:0"`
	PointsMultiplier float64 `gorm:"column:points_multiplier;not null;default:1"`

	IsActive bool `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Plan) TableName() string {
	return "membership_plans"
}

type SubscriptionStatus string

const (
	SubscriptionPendingPayment SubscriptionStatus = "PENDING_PAYMENT"
	SubscriptionActive         SubscriptionStatus = "ACTIVE"
	SubscriptionExpired        SubscriptionStatus = "EXPIRED"
	SubscriptionCancelled      SubscriptionStatus = "CANCELLED"
)

type Subscription struct {
	ID               string `gorm:"primaryKey;type:uuid"`
	UserID           string `gorm:"column:user_id;uniqueIndex;not null"`
	PlanID           string `gorm:"column:plan_id;index;not null"`
	MembershipNumber string `gorm:"column:membership_number;uniqueIndex;not null"`

	Status     SubscriptionStatus `gorm:"column:status;not null;default:PENDING_PAYMENT"`
	StartDate  *time.Time         `gorm:"column:start_date"`
	ExpiryDate *time.Time         `gorm:"column:expiry_date"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Subscription) TableName() string {
	return "membership_subscriptions"
}
