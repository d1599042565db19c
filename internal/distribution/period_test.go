package distribution

import (
	"errors"
	"testing"
	"time"

	"github.com/phraseflow/backend/internal/models"
)

func TestPeriodKey_Once(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if got := PeriodKey(models.RecurrenceOnce, now); got != "once" {
		t.Errorf("expected 'once', got %q", got)
	}
	// Unknown recurrence falls back to the constant key too.
	if got := PeriodKey("sometimes", now); got != "once" {
		t.Errorf("expected 'once' for unknown recurrence, got %q", got)
	}
}

func TestPeriodKey_Daily(t *testing.T) {
	now := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	if got := PeriodKey(models.RecurrenceDaily, now); got != "2026-08-30" {
		t.Errorf("expected 2026-08-30, got %q", got)
	}

	// Consecutive days produce distinct keys.
	next := PeriodKey(models.RecurrenceDaily, now.AddDate(0, 0, 1))
	if next != "2026-08-31" {
		t.Errorf("expected 2026-08-31, got %q", next)
	}
}

func TestPeriodKey_DailyUsesUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2026-08-31 07:00 JST is still 2026-08-30 in UTC.
	now := time.Date(2026, 8, 31, 7, 0, 0, 0, tokyo)
	if got := PeriodKey(models.RecurrenceDaily, now); got != "2026-08-30" {
		t.Errorf("expected UTC date 2026-08-30, got %q", got)
	}
}

func TestPeriodKey_Weekly(t *testing.T) {
	// 2026-08-30 is a Sunday in ISO week 35; Monday 2026-08-31 starts week 36.
	sunday := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	if got := PeriodKey(models.RecurrenceWeekly, sunday); got != "2026-W35" {
		t.Errorf("expected 2026-W35, got %q", got)
	}
	if got := PeriodKey(models.RecurrenceWeekly, monday); got != "2026-W36" {
		t.Errorf("expected 2026-W36, got %q", got)
	}

	// ISO week-year can differ from the calendar year at the boundary:
	// 2027-01-01 is a Friday, still week 53 of 2026.
	newYear := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := PeriodKey(models.RecurrenceWeekly, newYear); got != "2026-W53" {
		t.Errorf("expected 2026-W53, got %q", got)
	}
}

func TestPeriodKey_Monthly(t *testing.T) {
	now := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	if got := PeriodKey(models.RecurrenceMonthly, now); got != "2026-02" {
		t.Errorf("expected 2026-02, got %q", got)
	}
	if got := PeriodKey(models.RecurrenceMonthly, now.AddDate(0, 0, 1)); got != "2026-03" {
		t.Errorf("expected 2026-03, got %q", got)
	}
}

func activeEvent(scheduled time.Time, expires *time.Time) *models.DistributionEvent {
	return &models.DistributionEvent{
		Status:      models.DistributionActive,
		Recurrence:  models.RecurrenceOnce,
		ScheduledAt: scheduled,
		ExpiresAt:   expires,
	}
}

func TestClaimable_Active(t *testing.T) {
	now := time.Now().UTC()
	ev := activeEvent(now.Add(-time.Hour), nil)
	if err := Claimable(ev, now); err != nil {
		t.Errorf("expected claimable, got %v", err)
	}
}

func TestClaimable_DraftAndCancelled(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []string{models.DistributionDraft, models.DistributionCancelled} {
		ev := activeEvent(now.Add(-time.Hour), nil)
		ev.Status = status
		if err := Claimable(ev, now); !errors.Is(err, ErrNotActive) {
			t.Errorf("status %s: expected ErrNotActive, got %v", status, err)
		}
	}
}

func TestClaimable_ImplicitExpiry(t *testing.T) {
	// Stored status is still active but expires_at has passed — any reader
	// must treat it as expired.
	now := time.Now().UTC()
	expired := now.Add(-time.Minute)
	ev := activeEvent(now.Add(-time.Hour), &expired)

	if err := Claimable(ev, now); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
	if got := EffectiveStatus(ev, now); got != models.DistributionExpired {
		t.Errorf("expected effective status expired, got %q", got)
	}
}

func TestClaimable_StoredExpired(t *testing.T) {
	now := time.Now().UTC()
	ev := activeEvent(now.Add(-time.Hour), nil)
	ev.Status = models.DistributionExpired
	if err := Claimable(ev, now); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestClaimable_NotYetAvailable(t *testing.T) {
	now := time.Now().UTC()
	ev := activeEvent(now.Add(time.Hour), nil)
	if err := Claimable(ev, now); !errors.Is(err, ErrNotYetAvailable) {
		t.Errorf("expected ErrNotYetAvailable, got %v", err)
	}
}

func TestEffectiveStatus_PassThrough(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)

	ev := activeEvent(now.Add(-time.Hour), &future)
	if got := EffectiveStatus(ev, now); got != models.DistributionActive {
		t.Errorf("expected active, got %q", got)
	}

	ev.Status = models.DistributionCancelled
	if got := EffectiveStatus(ev, now); got != models.DistributionCancelled {
		t.Errorf("expected cancelled, got %q", got)
	}
}

func TestTransitionPreconditions(t *testing.T) {
	if !CanPublish(models.DistributionDraft) {
		t.Error("draft must be publishable")
	}
	for _, status := range []string{models.DistributionActive, models.DistributionExpired, models.DistributionCancelled} {
		if CanPublish(status) {
			t.Errorf("%s must not be publishable", status)
		}
	}

	if !CanCancel(models.DistributionDraft) || !CanCancel(models.DistributionActive) {
		t.Error("draft and active must be cancellable")
	}
	for _, status := range []string{models.DistributionExpired, models.DistributionCancelled} {
		if CanCancel(status) {
			t.Errorf("%s must not be cancellable", status)
		}
	}
}
