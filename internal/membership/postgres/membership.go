package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/altayar/tourism-backend/internal"
	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
	membershippkg "github.com/altayar/tourism-backend/internal/membership"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) membershippkg.Repository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) PlanByID(ctx context.Context, id string) (*membershipdm.Plan, error) {
	var plan membershipdm.Plan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *MembershipRepository) ListActivePlans(ctx context.Context) ([]membershipdm.Plan, error) {
	var plans []membershipdm.Plan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("tier_order ASC").
		Find(&plans).Error
	return plans, err
}

func (r *MembershipRepository) ActivePlanForUser(ctx context.Context, userID string) (*membershipdm.Plan, error) {
	var plan membershipdm.Plan
	err := r.db.WithContext(ctx).
		Table("membership_plans").
		Joins("JOIN membership_subscriptions ON membership_subscriptions.plan_id = membership_plans.id").
		Where("membership_subscriptions.user_id = ? AND membership_subscriptions.status = ?",
			userID, membershipdm.SubscriptionActive).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *MembershipRepository) SubscriptionByID(ctx context.Context, id string) (*membershipdm.Subscription, error) {
	var sub membershipdm.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *MembershipRepository) SubscriptionByUser(ctx context.Context, userID string) (*membershipdm.Subscription, error) {
	var sub membershipdm.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *MembershipRepository) CreateSubscription(ctx context.Context, sub *membershipdm.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *MembershipRepository) UpdateSubscription(ctx context.Context, sub *membershipdm.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(sub).Error
}
