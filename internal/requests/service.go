// Package requests implements the subscription-request workflow: public
// submission, and admin approval or rejection. Approval materializes a new
// Subscription and leaves the request behind as an immutable record.
package requests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/notify"
	"github.com/subtrack-hq/subtrack/internal/ratelimit"
	"github.com/subtrack-hq/subtrack/internal/refnum"
	"github.com/subtrack-hq/subtrack/internal/settings"
)

// ErrNotFound indicates the request does not exist.
var ErrNotFound = errors.New("requests: not found")

// ErrNotPending indicates an approve/reject on an already-reviewed request.
// The transition is rejected, not silently accepted.
var ErrNotPending = errors.New("requests: request is not pending")

// ErrRateLimited is surfaced on submission when any ceiling is exhausted.
var ErrRateLimited = ratelimit.ErrLimited

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

// Error lists the failing fields in stable order.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "requests: invalid submission: " + strings.Join(fields, ", ")
}

// SubmitInput is the public submission payload.
type SubmitInput struct {
	RequesterName  string
	RequesterEmail string
	Name           string
	Provider       string
	Justification  string
	Cost           float64
	Category       string
	Currency       string
	BillingCycle   string
}

// Service runs the request workflow.
type Service struct {
	db      *gorm.DB
	limiter *ratelimit.Manager
	sender  notify.Sender
	adminTo string
	nowFn   func() time.Time
}

// NewService constructs a request Service.
func NewService(db *gorm.DB, limiter *ratelimit.Manager, sender notify.Sender, adminTo string, nowFn func() time.Time) *Service {
	if sender == nil {
		sender = notify.NopSender{}
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{db: db, limiter: limiter, sender: sender, adminTo: adminTo, nowFn: nowFn}
}

// Submit validates the input shape first, then consumes rate-limit slots,
// then allocates a reference number and persists the pending request. A
// submission that fails validation never consumes a slot.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.SubscriptionRequest, error) {
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.RequesterEmail = strings.ToLower(strings.TrimSpace(in.RequesterEmail))
	in.Name = strings.TrimSpace(in.Name)
	in.Provider = strings.TrimSpace(in.Provider)
	in.Justification = strings.TrimSpace(in.Justification)

	fields := map[string]string{}
	if in.RequesterName == "" {
		fields["requester_name"] = "requester name is required"
	}
	if in.RequesterEmail == "" {
		fields["requester_email"] = "requester email is required"
	} else if !looksLikeEmail(in.RequesterEmail) {
		fields["requester_email"] = "requester email is invalid"
	}
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if in.Cost <= 0 {
		fields["cost"] = "cost must be a positive number"
	}

	cycle, okCycle := models.NormalizeBillingCycle(in.BillingCycle)
	if !okCycle {
		fields["billing_cycle"] = fmt.Sprintf("unrecognized billing cycle %q", in.BillingCycle)
	}

	category, errCategory := s.resolveCategory(ctx, in.Category)
	if errCategory != nil {
		fields["category"] = errCategory.Error()
	}
	currency, errCurrency := s.resolveCurrency(ctx, in.Currency)
	if errCurrency != nil {
		fields["currency"] = errCurrency.Error()
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if errLimit := s.limiter.CheckSubmission(ctx, in.RequesterEmail); errLimit != nil {
		return nil, errLimit
	}

	now := s.nowFn().UTC()
	var request models.SubscriptionRequest
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, errRef := refnum.Allocate(tx, refnum.EntityRequest, now)
		if errRef != nil {
			return errRef
		}
		request = models.SubscriptionRequest{
			ReferenceNumber: ref,
			RequesterName:   in.RequesterName,
			RequesterEmail:  in.RequesterEmail,
			Name:            in.Name,
			Provider:        in.Provider,
			Justification:   in.Justification,
			CategoryID:      category.ID,
			Cost:            in.Cost,
			CurrencyID:      currency.ID,
			BillingCycle:    cycle,
			Status:          models.RequestStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if errCreate := tx.Create(&request).Error; errCreate != nil {
			return fmt.Errorf("requests: create: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	if strings.TrimSpace(s.adminTo) != "" {
		if errNotify := s.sender.Send(ctx, notify.NewRequestAlert(&request, s.adminTo)); errNotify != nil {
			log.WithError(errNotify).Warn("requests: new-request alert failed")
		}
	}
	return &request, nil
}

func (s *Service) resolveCategory(ctx context.Context, raw string) (*models.Category, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return nil, errors.New("category is required")
	}
	var category models.Category
	errFind := s.db.WithContext(ctx).
		Where("LOWER(name) = ? AND is_active = ?", strings.ToLower(name), true).
		First(&category).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		return nil, fmt.Errorf("resolve category: %w", errFind)
	}
	return &category, nil
}

func (s *Service) resolveCurrency(ctx context.Context, raw string) (*models.Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		code = settings.DefaultCurrencyCode
	}
	var currency models.Currency
	errFind := s.db.WithContext(ctx).
		Where("UPPER(code) = ? AND is_active = ?", code, true).
		First(&currency).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown or inactive currency %q", code)
		}
		return nil, fmt.Errorf("resolve currency: %w", errFind)
	}
	return &currency, nil
}

// looksLikeEmail applies the same shallow shape check the submission form
// does; real verification is the mail system's problem.
func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t")
}
