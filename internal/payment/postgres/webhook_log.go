package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	paymentdm "github.com/altayar/tourism-backend/internal/core/datamodel/payment"
	paymentpkg "github.com/altayar/tourism-backend/internal/payment"
)

type WebhookLogRepository struct {
	db *gorm.DB
}

func NewWebhookLogRepository(db *gorm.DB) paymentpkg.WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Admit claims the event for processing. The insert races through the unique
// index on webhook_event_id: whoever lands the row owns the claim, everyone
// else resolves against the surviving row. No read-then-insert window exists.
func (r *WebhookLogRepository) Admit(ctx context.Context, log *paymentdm.WebhookLog) (paymentpkg.Admission, *paymentdm.WebhookLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.Status = paymentdm.WebhookProcessing
	log.DeliveryCount = 1
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "webhook_event_id"}},
			DoNothing: true,
		}).
		Create(log)
	if result.Error != nil {
		return 0, nil, result.Error
	}
	if result.RowsAffected == 1 {
		return paymentpkg.AdmissionAccepted, log, nil
	}

	// Conflict: someone inserted this event before us.
	existing, err := r.GetByEventID(ctx, log.EventID)
	if err != nil {
		return 0, nil, err
	}

	switch existing.Status {
	case paymentdm.WebhookProcessed, paymentdm.WebhookDuplicate:
		if err := r.bumpDeliveryCount(ctx, existing.ID); err != nil {
			return 0, nil, err
		}
		return paymentpkg.AdmissionAlreadyProcessed, existing, nil

	case paymentdm.WebhookProcessing:
		return paymentpkg.AdmissionInFlight, existing, nil

	default:
		// FAILED or RECEIVED: retake the claim. The conditional update loses
		// cleanly if a concurrent delivery retakes first.
		retake := r.db.WithContext(ctx).
			Model(&paymentdm.WebhookLog{}).
			Where("webhook_event_id = ? AND status IN ?", log.EventID,
				[]paymentdm.WebhookLogStatus{paymentdm.WebhookFailed, paymentdm.WebhookReceived}).
			Updates(map[string]interface{}{
				"status":         paymentdm.WebhookProcessing,
				"delivery_count": gorm.Expr("delivery_count + 1"),
				"error_message":  nil,
				"updated_at":     time.Now().UTC(),
			})
		if retake.Error != nil {
			return 0, nil, retake.Error
		}
		if retake.RowsAffected == 0 {
			return paymentpkg.AdmissionInFlight, existing, nil
		}
		return paymentpkg.AdmissionAccepted, existing, nil
	}
}

func (r *WebhookLogRepository) MarkProcessed(ctx context.Context, logID string, paymentID *string) error {
	return r.finish(ctx, logID, paymentdm.WebhookProcessed, paymentID, nil)
}

func (r *WebhookLogRepository) MarkDuplicate(ctx context.Context, logID string, paymentID *string) error {
	return r.finish(ctx, logID, paymentdm.WebhookDuplicate, paymentID, nil)
}

func (r *WebhookLogRepository) MarkFailed(ctx context.Context, logID string, errMsg string) error {
	return r.finish(ctx, logID, paymentdm.WebhookFailed, nil, &errMsg)
}

func (r *WebhookLogRepository) finish(ctx context.Context, logID string, status paymentdm.WebhookLogStatus, paymentID *string, errMsg *string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": now,
		"updated_at":   now,
	}
	if paymentID != nil {
		updates["payment_id"] = *paymentID
	}
	if errMsg != nil {
		updates["error_message"] = *errMsg
	}

	result := r.db.WithContext(ctx).
		Model(&paymentdm.WebhookLog{}).
		Where("id = ?", logID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook log %s not found", logID)
	}
	return nil
}

func (r *WebhookLogRepository) GetByEventID(ctx context.Context, eventID string) (*paymentdm.WebhookLog, error) {
	var log paymentdm.WebhookLog
	err := r.db.WithContext(ctx).Where("webhook_event_id = ?", eventID).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("webhook log for event %s not found", eventID)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *WebhookLogRepository) bumpDeliveryCount(ctx context.Context, logID string) error {
	return r.db.WithContext(ctx).
		Model(&paymentdm.WebhookLog{}).
		Where("id = ?", logID).
		UpdateColumn("delivery_count", gorm.Expr("delivery_count + 1")).Error
}
