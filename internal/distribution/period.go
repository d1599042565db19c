package distribution

import (
	"errors"
	"fmt"
	"time"

	"github.com/phraseflow/backend/internal/models"
)

// Structured claim failures. Handlers map these to status codes; nothing in
// the claim path panics or leaks raw database errors to the learner.
var (
	ErrAlreadyClaimed  = errors.New("already claimed for this period")
	ErrNotActive       = errors.New("distribution is not active")
	ErrExpired         = errors.New("distribution has expired")
	ErrNotYetAvailable = errors.New("distribution is not yet available")
	ErrNotFound        = errors.New("distribution not found")
)

// PeriodKey buckets the current instant into the recurrence instance being
// claimed: "once", a UTC date, an ISO week, or a year-month. Claims are
// unique per (event, user, period key), which is what makes a recurring
// distribution claimable once per period without any scheduler.
func PeriodKey(recurrence string, now time.Time) string {
	now = now.UTC()
	switch recurrence {
	case models.RecurrenceDaily:
		return now.Format("2006-01-02")
	case models.RecurrenceWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.RecurrenceMonthly:
		return now.Format("2006-01")
	default:
		return "once"
	}
}

// Claimable checks whether an event can be claimed at the given instant.
// An active event past its expires_at is treated as expired here even though
// the stored status has not been flipped yet.
func Claimable(ev *models.DistributionEvent, now time.Time) error {
	switch ev.Status {
	case models.DistributionActive:
		// fall through to window checks
	case models.DistributionExpired:
		return ErrExpired
	default:
		return ErrNotActive
	}

	if now.Before(ev.ScheduledAt) {
		return ErrNotYetAvailable
	}
	if ev.ExpiresAt != nil && now.After(*ev.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// EffectiveStatus is the status a reader should present: stored status with
// implicit expiry applied.
func EffectiveStatus(ev *models.DistributionEvent, now time.Time) string {
	if ev.Status == models.DistributionActive && ev.ExpiresAt != nil && now.After(*ev.ExpiresAt) {
		return models.DistributionExpired
	}
	return ev.Status
}

// CanPublish reports whether the draft → active transition is allowed.
func CanPublish(status string) bool {
	return status == models.DistributionDraft
}

// CanCancel reports whether the transition to cancelled is allowed.
func CanCancel(status string) bool {
	return status == models.DistributionDraft || status == models.DistributionActive
}
