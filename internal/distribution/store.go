package distribution

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/phraseflow/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Event CRUD ──────────────────────────────────────────

func (s *Store) Create(ev *models.DistributionEvent) error {
	rewardsJSON, err := json.Marshal(ev.Rewards)
	if err != nil {
		return fmt.Errorf("marshal rewards: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO distribution_events
		    (id, title, description, rewards, recurrence, scheduled_at, expires_at, status)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		ev.ID, ev.Title, ev.Description, rewardsJSON, ev.Recurrence,
		ev.ScheduledAt, ev.ExpiresAt, ev.Status,
	)
	return err
}

// Update rewrites the definition fields of a draft or active event. Returns
// ErrNotFound when the event does not exist or is in a terminal status.
func (s *Store) Update(id uuid.UUID, req models.DistributionRequest) error {
	rewardsJSON, err := json.Marshal(req.Rewards)
	if err != nil {
		return fmt.Errorf("marshal rewards: %w", err)
	}
	result, err := s.db.Exec(
		`UPDATE distribution_events SET
		    title = $2, description = NULLIF($3, ''), rewards = $4,
		    recurrence = $5, scheduled_at = $6, expires_at = $7, updated_at = NOW()
		 WHERE id = $1 AND status IN ('draft', 'active')`,
		id, req.Title, req.Description, rewardsJSON,
		req.Recurrence, req.ScheduledAt, req.ExpiresAt,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetByID(id uuid.UUID) (*models.DistributionEvent, error) {
	return scanEvent(s.db.QueryRow(
		`SELECT id, title, COALESCE(description, ''), rewards, recurrence,
		        scheduled_at, expires_at, status, claim_count, created_at, updated_at
		 FROM distribution_events WHERE id = $1`,
		id,
	))
}

func (s *Store) List(page, limit int, status string) ([]models.DistributionEvent, int, error) {
	var total int
	if status != "" {
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM distribution_events WHERE status = $1`, status,
		).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count distributions: %w", err)
		}
	} else {
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM distribution_events`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count distributions: %w", err)
		}
	}

	offset := (page - 1) * limit
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.Query(
			`SELECT id, title, COALESCE(description, ''), rewards, recurrence,
			        scheduled_at, expires_at, status, claim_count, created_at, updated_at
			 FROM distribution_events WHERE status = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT id, title, COALESCE(description, ''), rewards, recurrence,
			        scheduled_at, expires_at, status, claim_count, created_at, updated_at
			 FROM distribution_events
			 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()

	var events []models.DistributionEvent
	for rows.Next() {
		ev, err := scanEventRows(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *ev)
	}
	if events == nil {
		events = []models.DistributionEvent{}
	}
	return events, total, rows.Err()
}

// ── Status Transitions ──────────────────────────────────

// Publish flips draft → active; the WHERE clause enforces the precondition.
func (s *Store) Publish(id uuid.UUID) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE distribution_events SET status = 'active', updated_at = NOW()
		 WHERE id = $1 AND status = 'draft'`,
		id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *Store) Cancel(id uuid.UUID) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE distribution_events SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status IN ('draft', 'active')`,
		id,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkExpired flips stale active rows whose deadline has passed. Readers do
// not depend on this; it only keeps admin listings in sync.
func (s *Store) MarkExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE distribution_events SET status = 'expired', updated_at = NOW()
		 WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ── Availability ────────────────────────────────────────

func (s *Store) ListAvailable(now time.Time) ([]models.DistributionEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, title, COALESCE(description, ''), rewards, recurrence,
		        scheduled_at, expires_at, status, claim_count, created_at, updated_at
		 FROM distribution_events
		 WHERE status = 'active' AND scheduled_at <= $1
		 ORDER BY created_at DESC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list available distributions: %w", err)
	}
	defer rows.Close()

	var events []models.DistributionEvent
	for rows.Next() {
		ev, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// ClaimedKeys returns the "eventID:periodKey" pairs this user has already
// claimed among the given events.
func (s *Store) ClaimedKeys(userID int64, eventIDs []uuid.UUID) (map[string]bool, error) {
	if len(eventIDs) == 0 {
		return map[string]bool{}, nil
	}
	ids := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		ids[i] = id.String()
	}

	rows, err := s.db.Query(
		`SELECT event_id, period_key FROM distribution_claims
		 WHERE user_id = $1 AND event_id = ANY($2)`,
		userID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}
	defer rows.Close()

	claimed := make(map[string]bool)
	for rows.Next() {
		var eventID, periodKey string
		if err := rows.Scan(&eventID, &periodKey); err != nil {
			return nil, err
		}
		claimed[eventID+":"+periodKey] = true
	}
	return claimed, rows.Err()
}

// ── Claim ───────────────────────────────────────────────

// Claim performs the whole claim as one transaction: lock the event row,
// re-check claimability, insert the claim, bump claim_count, and credit the
// rewards. The unique constraint on (event_id, user_id, period_key) is the
// concurrency guard — a racing duplicate fails the insert, not the payout.
func (s *Store) Claim(eventID uuid.UUID, userID int64, now time.Time) (*models.ClaimResponse, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	ev, err := scanEvent(tx.QueryRow(
		`SELECT id, title, COALESCE(description, ''), rewards, recurrence,
		        scheduled_at, expires_at, status, claim_count, created_at, updated_at
		 FROM distribution_events WHERE id = $1 FOR UPDATE`,
		eventID,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load distribution: %w", err)
	}

	if err := Claimable(ev, now); err != nil {
		return nil, err
	}

	periodKey := PeriodKey(ev.Recurrence, now)
	rewardsJSON, err := json.Marshal(ev.Rewards)
	if err != nil {
		return nil, fmt.Errorf("marshal rewards: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO distribution_claims (event_id, user_id, period_key, rewards_granted)
		 VALUES ($1, $2, $3, $4)`,
		eventID, userID, periodKey, rewardsJSON,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE distribution_events SET claim_count = claim_count + 1, updated_at = NOW() WHERE id = $1`,
		eventID,
	); err != nil {
		return nil, fmt.Errorf("increment claim count: %w", err)
	}

	for _, reward := range ev.Rewards {
		if err := creditReward(tx, userID, reward); err != nil {
			return nil, fmt.Errorf("grant reward %s: %w", reward.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return &models.ClaimResponse{Rewards: ev.Rewards, PeriodKey: periodKey}, nil
}

// creditReward applies one reward line as an atomic increment on the user
// row. Reward types are validated against the whitelist at event creation,
// so the column name interpolation below only ever sees known values.
func creditReward(tx *sql.Tx, userID int64, reward models.Reward) error {
	if !models.ValidRewardType(reward.Type) {
		return fmt.Errorf("unknown reward type %q", reward.Type)
	}
	if reward.Type == models.RewardTypeCoins {
		_, err := tx.Exec(
			`UPDATE users SET coins = coins + $2, updated_at = NOW() WHERE id = $1`,
			userID, reward.Amount,
		)
		return err
	}
	column := reward.Type + "_credits"
	query := fmt.Sprintf(
		`UPDATE users SET %s = %s + $2, updated_at = NOW() WHERE id = $1`,
		column, column,
	)
	_, err := tx.Exec(query, userID, reward.Amount)
	return err
}

// ── Scan Helpers ────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.DistributionEvent, error) {
	var ev models.DistributionEvent
	var rewardsJSON []byte
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &rewardsJSON, &ev.Recurrence,
		&ev.ScheduledAt, &ev.ExpiresAt, &ev.Status, &ev.ClaimCount, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rewardsJSON, &ev.Rewards); err != nil {
		return nil, fmt.Errorf("unmarshal rewards: %w", err)
	}
	return &ev, nil
}

func scanEventRows(rows *sql.Rows) (*models.DistributionEvent, error) {
	return scanEvent(rows)
}
