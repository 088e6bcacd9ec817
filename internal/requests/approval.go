package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/notify"
	"github.com/subtrack-hq/subtrack/internal/refnum"
	"github.com/subtrack-hq/subtrack/internal/renewal"
	"github.com/subtrack-hq/subtrack/internal/settings"
)

// Rejection reason bounds, applied after trimming.
const (
	minRejectReasonLength = 10
	maxRejectReasonLength = 1000
)

// ErrInvalidReason indicates a rejection reason outside the accepted bounds.
var ErrInvalidReason = fmt.Errorf("requests: rejection reason must be %d-%d characters", minRejectReasonLength, maxRejectReasonLength)

// Approve transitions a pending request to approved and materializes a new
// Subscription in the same transaction. The request record itself is never
// turned into the subscription. Notification failure never fails the
// approval.
func (s *Service) Approve(ctx context.Context, id uint64, reviewedBy, adminNotes string) (*models.Subscription, error) {
	now := s.nowFn().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var request models.SubscriptionRequest
	var sub models.Subscription
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLoad := loadPending(tx, id, &request); errLoad != nil {
			return errLoad
		}

		ref, errRef := refnum.Allocate(tx, refnum.EntitySubscription, now)
		if errRef != nil {
			return errRef
		}

		sub = models.Subscription{
			ReferenceNumber:        ref,
			Name:                   request.Name,
			Provider:               request.Provider,
			CategoryID:             request.CategoryID,
			Cost:                   request.Cost,
			CurrencyID:             request.CurrencyID,
			BillingCycle:           request.BillingCycle,
			PaymentMethod:          models.PaymentMethodOther,
			StartDate:              today,
			NextRenewalDate:        renewal.NextDate(today, request.BillingCycle),
			Status:                 models.SubscriptionStatusActive,
			NotificationEnabled:    true,
			NotificationDaysBefore: settings.DefaultNotificationDaysBefore,
			OwnerEmail:             request.RequesterEmail,
			Notes:                  request.Justification,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if errCreate := tx.Create(&sub).Error; errCreate != nil {
			return fmt.Errorf("requests: materialize subscription: %w", errCreate)
		}

		return review(tx, &request, models.RequestStatusApproved, reviewedBy, adminNotes, now)
	})
	if errTx != nil {
		return nil, errTx
	}

	if errNotify := s.sender.Send(ctx, notify.RequestApproved(&request, &sub)); errNotify != nil {
		log.WithError(errNotify).Warn("requests: approval notice failed")
	}
	return &sub, nil
}

// Reject transitions a pending request to rejected. The reason is required
// and length-bounded.
func (s *Service) Reject(ctx context.Context, id uint64, reviewedBy, reason string) (*models.SubscriptionRequest, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < minRejectReasonLength || len(reason) > maxRejectReasonLength {
		return nil, ErrInvalidReason
	}

	now := s.nowFn().UTC()
	var request models.SubscriptionRequest
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLoad := loadPending(tx, id, &request); errLoad != nil {
			return errLoad
		}
		return review(tx, &request, models.RequestStatusRejected, reviewedBy, reason, now)
	})
	if errTx != nil {
		return nil, errTx
	}

	if errNotify := s.sender.Send(ctx, notify.RequestRejected(&request, reason)); errNotify != nil {
		log.WithError(errNotify).Warn("requests: rejection notice failed")
	}
	return &request, nil
}

func loadPending(tx *gorm.DB, id uint64, out *models.SubscriptionRequest) error {
	if errFind := tx.First(out, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("requests: load: %w", errFind)
	}
	if out.Status != models.RequestStatusPending {
		return ErrNotPending
	}
	return nil
}

// review patches the request into its terminal state. The WHERE on status
// keeps a concurrent reviewer from double-applying the transition.
func review(tx *gorm.DB, request *models.SubscriptionRequest, status, reviewedBy, adminNotes string, now time.Time) error {
	res := tx.Model(&models.SubscriptionRequest{}).
		Where("id = ? AND status = ?", request.ID, models.RequestStatusPending).
		Updates(map[string]any{
			"status":      status,
			"admin_notes": adminNotes,
			"reviewed_by": reviewedBy,
			"reviewed_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("requests: review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	request.Status = status
	request.AdminNotes = adminNotes
	request.ReviewedBy = reviewedBy
	request.ReviewedAt = &now
	request.UpdatedAt = now
	return nil
}
