package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	"github.com/altayar/tourism-backend/internal/membership"
)

const (
	referenceTypePayment = "payment"

	// one loyalty point per this many cents of paid amount, before the tier
	// multiplier
	pointsBaseCents = 1000
)

// ActionFunc is one post-payment action. It runs inside the webhook
// transaction; returning an error rolls back the payment status change too.
type ActionFunc func(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error

// Dispatcher routes a freshly PAID payment to the action for its type.
// Actions are registered once at construction; an unregistered type is a
// processing error, not a silent skip.
type Dispatcher struct {
	actions map[paymentdm.Type]ActionFunc
	logger  *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		actions: make(map[paymentdm.Type]ActionFunc),
		logger:  logger,
	}
	d.actions[paymentdm.TypeBooking] = d.confirmBooking
	d.actions[paymentdm.TypeOrder] = d.confirmOrder
	d.actions[paymentdm.TypeMembershipNew] = d.activateMembership
	d.actions[paymentdm.TypeMembershipRenewal] = d.renewMembership
	d.actions[paymentdm.TypeWalletDeposit] = d.creditWalletDeposit
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	action, ok := d.actions[pay.PaymentType]
	if !ok {
		return fmt.Errorf("no post-payment action registered for type %s", pay.PaymentType)
	}

	d.logger.Info("dispatching post-payment action",
		"payment_id", pay.ID,
		"payment_type", pay.PaymentType,
		"user_id", pay.UserID,
		"amount_cents", pay.AmountCents)

	return action(ctx, tx, pay)
}

func (d *Dispatcher) confirmBooking(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	if pay.BookingID == nil {
		return fmt.Errorf("booking payment %s has no booking reference", pay.ID)
	}
	if err := tx.Bookings.MarkPaid(ctx, *pay.BookingID, paidAtOrNow(pay)); err != nil {
		return fmt.Errorf("confirm booking %s: %w", *pay.BookingID, err)
	}
	return d.accrueRewards(ctx, tx, pay)
}

func (d *Dispatcher) confirmOrder(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	if pay.OrderID == nil {
		return fmt.Errorf("order payment %s has no order reference", pay.ID)
	}
	if err := tx.Orders.MarkPaid(ctx, *pay.OrderID, paidAtOrNow(pay)); err != nil {
		return fmt.Errorf("confirm order %s: %w", *pay.OrderID, err)
	}
	return d.accrueRewards(ctx, tx, pay)
}

func (d *Dispatcher) activateMembership(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	sub, plan, err := d.subscriptionWithPlan(ctx, tx, pay)
	if err != nil {
		return err
	}

	membership.Activate(sub, plan, paidAtOrNow(pay))
	if err := tx.Memberships.UpdateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("activate subscription %s: %w", sub.ID, err)
	}

	if plan.InitialPoints > 0 {
		entry := &ledgerdm.Entry{
			UserID:        pay.UserID,
			Amount:        plan.InitialPoints,
			ReferenceType: referenceTypePayment,
			ReferenceID:   pay.ID,
			Description:   fmt.Sprintf("welcome points for %s membership", plan.TierName),
		}
		if err := tx.Ledger.Append(ctx, ledgerdm.TypePoints, entry, 0); err != nil {
			return fmt.Errorf("grant initial points: %w", err)
		}
	}

	d.logger.Info("membership activated",
		"subscription_id", sub.ID,
		"plan_id", plan.ID,
		"user_id", pay.UserID,
		"initial_points", plan.InitialPoints)
	return nil
}

func (d *Dispatcher) renewMembership(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	sub, plan, err := d.subscriptionWithPlan(ctx, tx, pay)
	if err != nil {
		return err
	}

	membership.Renew(sub, plan, paidAtOrNow(pay))
	if err := tx.Memberships.UpdateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("renew subscription %s: %w", sub.ID, err)
	}

	d.logger.Info("membership renewed",
		"subscription_id", sub.ID,
		"plan_id", plan.ID,
		"user_id", pay.UserID,
		"expiry_date", sub.ExpiryDate)
	return nil
}

func (d *Dispatcher) creditWalletDeposit(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	entry := &ledgerdm.Entry{
		UserID:        pay.UserID,
		Amount:        pay.AmountCents,
		ReferenceType: referenceTypePayment,
		ReferenceID:   pay.ID,
		Description:   fmt.Sprintf("wallet deposit %s", pay.PaymentNumber),
	}
	if err := tx.Ledger.Append(ctx, ledgerdm.TypeWallet, entry, 0); err != nil {
		return fmt.Errorf("credit wallet deposit: %w", err)
	}
	return nil
}

func (d *Dispatcher) subscriptionWithPlan(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) (*membershipdm.Subscription, *membershipdm.Plan, error) {
	if pay.SubscriptionID == nil {
		return nil, nil, fmt.Errorf("membership payment %s has no subscription reference", pay.ID)
	}
	sub, err := tx.Memberships.SubscriptionByID(ctx, *pay.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := tx.Memberships.PlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}

// accrueRewards writes cashback and points entries for a booking/order
// payment according to the payer's membership tier. No active membership
// means no cashback and base-rate points. Zero-amount accruals are skipped,
// not written.
func (d *Dispatcher) accrueRewards(ctx context.Context, tx TxRepos, pay *paymentdm.Payment) error {
	plan, err := tx.Memberships.ActivePlanForUser(ctx, pay.UserID)
	if err != nil {
		return fmt.Errorf("resolve membership tier: %w", err)
	}

	cashbackRate := 0.0
	pointsMultiplier := 1.0
	tierName := "none"
	if plan != nil {
		cashbackRate = plan.CashbackRate
		pointsMultiplier = plan.PointsMultiplier
		tierName = plan.TierName
	}

	if cashback := CashbackCents(pay.AmountCents, cashbackRate); cashback > 0 {
		entry := &ledgerdm.Entry{
			UserID:        pay.UserID,
			Amount:        cashback,
			ReferenceType: referenceTypePayment,
			ReferenceID:   pay.ID,
			Description:   fmt.Sprintf("cashback for %s", pay.PaymentNumber),
		}
		if err := tx.Ledger.Append(ctx, ledgerdm.TypeCashback, entry, 0); err != nil {
			return fmt.Errorf("accrue cashback: %w", err)
		}
	}

	if points := PointsEarned(pay.AmountCents, pointsMultiplier); points > 0 {
		entry := &ledgerdm.Entry{
			UserID:        pay.UserID,
			Amount:        points,
			ReferenceType: referenceTypePayment,
			ReferenceID:   pay.ID,
			Description:   fmt.Sprintf("points earned for %s", pay.PaymentNumber),
		}
		if err := tx.Ledger.Append(ctx, ledgerdm.TypePoints, entry, 0); err != nil {
			return fmt.Errorf("accrue points: %w", err)
		}
	}

	d.logger.Info("rewards accrued",
		"payment_id", pay.ID,
		"user_id", pay.UserID,
		"tier", tierName,
		"cashback_rate", cashbackRate,
		"points_multiplier", pointsMultiplier)
	return nil
}

// CashbackCents is the tier cashback for a paid amount: rate percent of the
// amount, rounded to the nearest cent.
func CashbackCents(amountCents int64, rate float64) int64 {
	if rate <= 0 || amountCents <= 0 {
		return 0
	}
	return int64(math.Round(float64(amountCents) * rate / 100))
}

// PointsEarned is the loyalty point grant: one point per pointsBaseCents of
// the amount, scaled by the tier multiplier and floored.
func PointsEarned(amountCents int64, multiplier float64) int64 {
	if amountCents <= 0 || multiplier <= 0 {
		return 0
	}
	base := amountCents / pointsBaseCents
	return int64(math.Floor(float64(base) * multiplier))
}

func paidAtOrNow(pay *paymentdm.Payment) time.Time {
	if pay.PaidAt != nil {
		return *pay.PaidAt
	}
	return time.Now().UTC()
}
