// Package scheduler runs the recurring background jobs: the daily renewal
// reminder scan and the weekly exchange-rate refresh.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/subtrack-hq/subtrack/internal/models"
	"github.com/subtrack-hq/subtrack/internal/notify"
	"github.com/subtrack-hq/subtrack/internal/rates"
	"github.com/subtrack-hq/subtrack/internal/renewal"
)

// Job schedules. The scan runs after business hours start so reminders land
// in the morning inbox; the rate refresh runs before the week begins.
const (
	renewalScanSpec = "0 9 * * *"
	rateRefreshSpec = "0 6 * * 1"
)

const jobTimeout = 5 * time.Minute

// Scheduler owns the cron runner and its job dependencies.
type Scheduler struct {
	db     *gorm.DB
	sender notify.Sender
	rates  *rates.Service
	nowFn  func() time.Time
	cron   *cron.Cron
}

// New constructs a Scheduler. nowFn defaults to time.Now.
func New(db *gorm.DB, sender notify.Sender, ratesService *rates.Service, nowFn func() time.Time) *Scheduler {
	if sender == nil {
		sender = notify.NopSender{}
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Scheduler{
		db:     db,
		sender: sender,
		rates:  ratesService,
		nowFn:  nowFn,
		cron:   cron.New(),
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, errAdd := s.cron.AddFunc(renewalScanSpec, s.runRenewalScan); errAdd != nil {
		return errAdd
	}
	if _, errAdd := s.cron.AddFunc(rateRefreshSpec, s.runRateRefresh); errAdd != nil {
		return errAdd
	}
	s.cron.Start()
	log.Info("scheduler: started renewal scan and rate refresh jobs")
	return nil
}

// Stop halts the cron runner and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runRenewalScan() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.ScanRenewals(ctx); err != nil {
		log.WithError(err).Error("scheduler: renewal scan failed")
	}
}

func (s *Scheduler) runRateRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.rates.Refresh(ctx); err != nil {
		log.WithError(err).Warn("scheduler: rate refresh failed")
	}
}

// ScanRenewals sends reminders for active, notification-enabled subscriptions
// whose renewal falls within their notification window, then rolls past-due
// renewal dates forward one billing cycle. Each renewal date is reminded at
// most once; send failures are logged and do not stamp the subscription.
func (s *Scheduler) ScanRenewals(ctx context.Context) error {
	now := s.nowFn().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var due []models.Subscription
	errFind := s.db.WithContext(ctx).
		Where("status = ? AND notification_enabled = ?", models.SubscriptionStatusActive, true).
		Where("next_renewal_date <= ?", today.AddDate(0, 0, maxNotificationDays)).
		Find(&due).Error
	if errFind != nil {
		return errFind
	}

	reminded := 0
	for i := range due {
		sub := &due[i]
		windowStart := sub.NextRenewalDate.AddDate(0, 0, -sub.NotificationDaysBefore)
		if today.Before(windowStart) {
			continue
		}
		if sub.OwnerEmail == "" {
			continue
		}
		if sub.LastNotifiedAt != nil && !sub.LastNotifiedAt.Before(windowStart) {
			continue
		}
		if errSend := s.sender.Send(ctx, notify.RenewalReminder(sub)); errSend != nil {
			log.WithError(errSend).WithField("subscription", sub.ReferenceNumber).
				Warn("scheduler: reminder send failed")
			continue
		}
		errStamp := s.db.WithContext(ctx).Model(sub).
			UpdateColumn("last_notified_at", &now).Error
		if errStamp != nil {
			return errStamp
		}
		reminded++
	}

	rolled, errRoll := s.rollPastDue(ctx, due, today)
	if errRoll != nil {
		return errRoll
	}
	log.WithField("reminded", reminded).WithField("rolled", rolled).
		Info("scheduler: renewal scan complete")
	return nil
}

// rollPastDue advances renewal dates that have already passed by one billing
// cycle so the next scan picks them up again.
func (s *Scheduler) rollPastDue(ctx context.Context, subs []models.Subscription, today time.Time) (int, error) {
	rolled := 0
	for i := range subs {
		sub := &subs[i]
		if !sub.NextRenewalDate.Before(today) {
			continue
		}
		next := renewal.NextDate(sub.NextRenewalDate, sub.BillingCycle)
		errUpdate := s.db.WithContext(ctx).Model(sub).
			UpdateColumn("next_renewal_date", next).Error
		if errUpdate != nil {
			return rolled, errUpdate
		}
		rolled++
	}
	return rolled, nil
}

// maxNotificationDays bounds the candidate query; per-subscription windows
// are checked exactly in the loop.
const maxNotificationDays = 60
