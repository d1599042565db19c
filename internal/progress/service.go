package progress

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/phraseflow/backend/internal/models"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// ── Recalculation ───────────────────────────────────────

// RecalculateAll rebuilds every user_progress row from the full event log
// using the current xp_settings and levels tables. The read pass is
// fail-fast; the write pass is best-effort per row, with failures tallied.
// Re-running with unchanged inputs is a no-op.
func (s *Service) RecalculateAll() (*models.RecalcSummary, error) {
	settings, err := s.store.XPValueMap()
	if err != nil {
		return nil, fmt.Errorf("load xp settings: %w", err)
	}

	levels, err := s.store.ListLevels()
	if err != nil {
		return nil, fmt.Errorf("load levels: %w", err)
	}

	acc := NewAccumulator(settings)
	if err := s.store.StreamEvents(acc.Add); err != nil {
		return nil, fmt.Errorf("stream events: %w", err)
	}

	upserted := 0
	failures := 0
	for key, totals := range acc.Totals() {
		level := DeriveLevel(levels, totals.XPTotal)
		if err := s.store.UpsertProgress(key, totals.XPTotal, level, totals.LastActivity); err != nil {
			log.Printf("[progress] upsert failed for user %d lang %s: %v", key.UserID, key.LanguageCode, err)
			failures++
			continue
		}
		upserted++
	}

	summary := &models.RecalcSummary{
		EventsProcessed: acc.Processed,
		EventsMatched:   acc.Matched,
		EventsUnmatched: acc.Unmatched,
		TotalXP:         acc.TotalXP,
		RowsUpserted:    upserted,
		UpsertFailures:  failures,
	}
	summary.Details = fmt.Sprintf(
		"Processed %d events (%d matched, %d unmatched against XP settings), %d XP total. Upserted %d progress rows, %d failures.",
		summary.EventsProcessed, summary.EventsMatched, summary.EventsUnmatched,
		summary.TotalXP, summary.RowsUpserted, summary.UpsertFailures,
	)

	log.Printf("[progress] recalculation: %s", summary.Details)
	return summary, nil
}

// ── Event Intake ────────────────────────────────────────

func (s *Service) LogEvent(userID int64, req models.LogEventRequest) error {
	if req.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if req.LanguageCode == "" {
		return fmt.Errorf("language_code is required")
	}

	return s.store.InsertEvent(models.LearningEvent{
		UserID:       userID,
		LanguageCode: req.LanguageCode,
		EventType:    req.EventType,
		XPDelta:      req.XPDelta,
		OccurredAt:   time.Now().UTC(),
		Meta:         req.Meta,
	})
}

// ── Admin Tools ─────────────────────────────────────────

// SeedEvents generates synthetic activity for the past 21 days so operators
// can exercise recalculation against a known user. Density 1-3 controls both
// how many days have activity and how many events land on each.
func (s *Service) SeedEvents(req models.SeedEventsRequest) (int, error) {
	if req.Density < 1 || req.Density > 3 {
		return 0, fmt.Errorf("density must be between 1 and 3")
	}
	if req.LanguageCode == "" {
		return 0, fmt.Errorf("language_code is required")
	}
	exists, err := s.store.UserExists(req.UserID)
	if err != nil {
		return 0, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("user not found")
	}

	now := time.Now().UTC()
	var events []models.LearningEvent

	for i := 0; i < 21; i++ {
		day := now.AddDate(0, 0, -i)

		if rand.Float64() > float64(req.Density)*0.3 {
			continue
		}

		count := rand.Intn(req.Density*3) + 1
		for j := 0; j < count; j++ {
			occurred := time.Date(day.Year(), day.Month(), day.Day(),
				8+rand.Intn(14), rand.Intn(60), 0, 0, time.UTC)
			events = append(events, models.LearningEvent{
				UserID:       req.UserID,
				LanguageCode: req.LanguageCode,
				EventType:    "phrase_viewed",
				XPDelta:      1,
				OccurredAt:   occurred,
				Meta:         `{"seeded": true}`,
			})
		}
	}

	if len(events) == 0 {
		return 0, nil
	}
	if err := s.store.InsertEvents(events); err != nil {
		return 0, err
	}
	return len(events), nil
}
