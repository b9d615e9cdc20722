package membership

import (
	"context"
	"time"

	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
)

// Repository gives the payment flow what it needs from memberships: plan
// lookups for reward rates and subscription writes for activation.
type Repository interface {
	PlanByID(ctx context.Context, id string) (*membershipdm.Plan, error)
	ListActivePlans(ctx context.Context) ([]membershipdm.Plan, error)

	// ActivePlanForUser resolves the plan behind the user's ACTIVE
	// subscription; nil when the user has none. Reward accrual treats a
	// missing subscription as rate 0 / multiplier 1.
	ActivePlanForUser(ctx context.Context, userID string) (*membershipdm.Plan, error)

	SubscriptionByID(ctx context.Context, id string) (*membershipdm.Subscription, error)
	SubscriptionByUser(ctx context.Context, userID string) (*membershipdm.Subscription, error)
	CreateSubscription(ctx context.Context, sub *membershipdm.Subscription) error
	UpdateSubscription(ctx context.Context, sub *membershipdm.Subscription) error
}

// Activate flips a subscription to ACTIVE from the moment of payment and
// computes its expiry from the plan duration. A nil duration means the plan
// never expires.
func Activate(sub *membershipdm.Subscription, plan *membershipdm.Plan, paidAt time.Time) {
	sub.Status = membershipdm.SubscriptionActive
	start := paidAt.UTC()
	sub.StartDate = &start
	if plan.DurationDays != nil {
		expiry := start.AddDate(0, 0, *plan.DurationDays)
		sub.ExpiryDate = &expiry
	} else {
		sub.ExpiryDate = nil
	}
}

// Renew extends an active subscription. Renewal before expiry extends from
// the current expiry; renewal after a lapse restarts from the payment time.
func Renew(sub *membershipdm.Subscription, plan *membershipdm.Plan, paidAt time.Time) {
	sub.Status = membershipdm.SubscriptionActive
	if plan.DurationDays == nil {
		sub.ExpiryDate = nil
		return
	}

	base := paidAt.UTC()
	if sub.ExpiryDate != nil && sub.ExpiryDate.After(base) {
		base = *sub.ExpiryDate
	}
	expiry := base.AddDate(0, 0, *plan.DurationDays)
	sub.ExpiryDate = &expiry
}
