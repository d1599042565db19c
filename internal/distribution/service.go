package distribution

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/phraseflow/backend/internal/models"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// ── Admin Operations ────────────────────────────────────

func validateRequest(req models.DistributionRequest) error {
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	switch req.Recurrence {
	case models.RecurrenceOnce, models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly:
	default:
		return fmt.Errorf("recurrence must be once, daily, weekly, or monthly")
	}
	if req.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(req.ScheduledAt) {
		return fmt.Errorf("expires_at must be after scheduled_at")
	}
	if len(req.Rewards) == 0 {
		return fmt.Errorf("at least one reward is required")
	}
	for _, r := range req.Rewards {
		if !models.ValidRewardType(r.Type) {
			return fmt.Errorf("unknown reward type %q", r.Type)
		}
		if r.Amount <= 0 {
			return fmt.Errorf("reward amount must be positive")
		}
	}
	return nil
}

func (s *Service) Create(req models.DistributionRequest) (*models.DistributionEvent, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ev := &models.DistributionEvent{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Rewards:     req.Rewards,
		Recurrence:  req.Recurrence,
		ScheduledAt: req.ScheduledAt,
		ExpiresAt:   req.ExpiresAt,
		Status:      models.DistributionDraft,
	}
	if err := s.store.Create(ev); err != nil {
		return nil, fmt.Errorf("create distribution: %w", err)
	}
	return s.store.GetByID(ev.ID)
}

func (s *Service) Update(id uuid.UUID, req models.DistributionRequest) (*models.DistributionEvent, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.store.Update(id, req); err != nil {
		return nil, err
	}
	return s.store.GetByID(id)
}

func (s *Service) Publish(id uuid.UUID) error {
	ok, err := s.store.Publish(id)
	if err != nil {
		return fmt.Errorf("publish distribution: %w", err)
	}
	if !ok {
		ev, getErr := s.store.GetByID(id)
		if getErr != nil {
			return ErrNotFound
		}
		return fmt.Errorf("cannot publish a %s distribution", ev.Status)
	}
	return nil
}

func (s *Service) Cancel(id uuid.UUID) error {
	ok, err := s.store.Cancel(id)
	if err != nil {
		return fmt.Errorf("cancel distribution: %w", err)
	}
	if !ok {
		ev, getErr := s.store.GetByID(id)
		if getErr != nil {
			return ErrNotFound
		}
		return fmt.Errorf("cannot cancel a %s distribution", ev.Status)
	}
	return nil
}

func (s *Service) List(page, limit int, status string) (*models.DistributionListResponse, error) {
	events, total, err := s.store.List(page, limit, status)
	if err != nil {
		return nil, err
	}

	// Present implicit expiry without waiting for the sweep worker.
	now := time.Now().UTC()
	for i := range events {
		events[i].Status = EffectiveStatus(&events[i], now)
	}

	return &models.DistributionListResponse{Events: events, Total: total, Page: page}, nil
}

// ── Learner Operations ──────────────────────────────────

// Available lists active, in-window events the user has not claimed in the
// current recurrence period.
func (s *Service) Available(userID int64) ([]models.AvailableDistribution, error) {
	now := time.Now().UTC()

	events, err := s.store.ListAvailable(now)
	if err != nil {
		return nil, err
	}

	// Drop implicitly expired rows the sweep has not flipped yet.
	var live []models.DistributionEvent
	for _, ev := range events {
		if ev.ExpiresAt == nil || ev.ExpiresAt.After(now) {
			live = append(live, ev)
		}
	}
	if len(live) == 0 {
		return []models.AvailableDistribution{}, nil
	}

	ids := make([]uuid.UUID, len(live))
	for i, ev := range live {
		ids[i] = ev.ID
	}
	claimed, err := s.store.ClaimedKeys(userID, ids)
	if err != nil {
		return nil, err
	}

	var out []models.AvailableDistribution
	for _, ev := range live {
		periodKey := PeriodKey(ev.Recurrence, now)
		if claimed[ev.ID.String()+":"+periodKey] {
			continue
		}
		out = append(out, models.AvailableDistribution{
			ID:          ev.ID,
			Title:       ev.Title,
			Description: ev.Description,
			Rewards:     ev.Rewards,
			Recurrence:  ev.Recurrence,
		})
	}
	if out == nil {
		out = []models.AvailableDistribution{}
	}
	return out, nil
}

func (s *Service) Claim(eventID string, userID int64) (*models.ClaimResponse, error) {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id")
	}
	return s.store.Claim(id, userID, time.Now().UTC())
}

// ── Background Worker ───────────────────────────────────

// StartExpirySweepWorker periodically flips active distributions whose
// expires_at has passed. Correctness never depends on it — every read path
// applies implicit expiry — it just keeps stored statuses from drifting.
func (s *Service) StartExpirySweepWorker(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	log.Println("[distribution] Expiry sweep worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[distribution] Expiry sweep worker shutting down")
			return
		case t := <-ticker.C:
			count, err := s.store.MarkExpired(t.UTC())
			if err != nil {
				log.Printf("[distribution] expiry sweep failed: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("[distribution] expiry sweep: marked %d distributions expired", count)
			}
		}
	}
}
