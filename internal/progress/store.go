package progress

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/phraseflow/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── XP Settings ─────────────────────────────────────────

func (s *Store) ListXPSettings() ([]models.XPSetting, error) {
	rows, err := s.db.Query(
		`SELECT event_type, xp_value, is_active, COALESCE(label, ''), updated_at
		 FROM xp_settings ORDER BY event_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("list xp settings: %w", err)
	}
	defer rows.Close()

	var settings []models.XPSetting
	for rows.Next() {
		var x models.XPSetting
		if err := rows.Scan(&x.EventType, &x.XPValue, &x.IsActive, &x.Label, &x.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, x)
	}
	if settings == nil {
		settings = []models.XPSetting{}
	}
	return settings, rows.Err()
}

// XPValueMap loads the event_type → xp_value lookup used by recalculation.
func (s *Store) XPValueMap() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT event_type, xp_value FROM xp_settings`)
	if err != nil {
		return nil, fmt.Errorf("load xp settings: %w", err)
	}
	defer rows.Close()

	m := make(map[string]int)
	for rows.Next() {
		var eventType string
		var value int
		if err := rows.Scan(&eventType, &value); err != nil {
			return nil, err
		}
		m[eventType] = value
	}
	return m, rows.Err()
}

func (s *Store) UpsertXPSetting(req models.XPSettingRequest) error {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	_, err := s.db.Exec(
		`INSERT INTO xp_settings (event_type, xp_value, is_active, label, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		 ON CONFLICT (event_type) DO UPDATE SET
		    xp_value = EXCLUDED.xp_value,
		    is_active = EXCLUDED.is_active,
		    label = COALESCE(EXCLUDED.label, xp_settings.label),
		    updated_at = NOW()`,
		req.EventType, req.XPValue, isActive, req.Label,
	)
	return err
}

func (s *Store) DeleteXPSetting(eventType string) error {
	result, err := s.db.Exec(`DELETE FROM xp_settings WHERE event_type = $1`, eventType)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("xp setting not found")
	}
	return nil
}

// ── Levels ──────────────────────────────────────────────

func (s *Store) ListLevels() ([]models.Level, error) {
	rows, err := s.db.Query(
		`SELECT level, xp_threshold, COALESCE(title, '') FROM levels ORDER BY xp_threshold ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()

	var levels []models.Level
	for rows.Next() {
		var l models.Level
		if err := rows.Scan(&l.Level, &l.XPThreshold, &l.Title); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	if levels == nil {
		levels = []models.Level{}
	}
	return levels, rows.Err()
}

func (s *Store) UpsertLevel(req models.LevelRequest) error {
	_, err := s.db.Exec(
		`INSERT INTO levels (level, xp_threshold, title)
		 VALUES ($1, $2, NULLIF($3, ''))
		 ON CONFLICT (level) DO UPDATE SET
		    xp_threshold = EXCLUDED.xp_threshold,
		    title = COALESCE(EXCLUDED.title, levels.title)`,
		req.Level, req.XPThreshold, req.Title,
	)
	return err
}

func (s *Store) DeleteLevel(level int) error {
	result, err := s.db.Exec(`DELETE FROM levels WHERE level = $1`, level)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("level not found")
	}
	return nil
}

// ── Learning Events ─────────────────────────────────────

func (s *Store) InsertEvent(ev models.LearningEvent) error {
	var metaJSON *string
	if ev.Meta != "" {
		metaJSON = &ev.Meta
	}
	_, err := s.db.Exec(
		`INSERT INTO learning_events (user_id, language_code, event_type, xp_delta, occurred_at, meta)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.UserID, ev.LanguageCode, ev.EventType, ev.XPDelta, ev.OccurredAt, metaJSON,
	)
	return err
}

func (s *Store) InsertEvents(events []models.LearningEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO learning_events (user_id, language_code, event_type, xp_delta, occurred_at, meta)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		var metaJSON *string
		if ev.Meta != "" {
			m := ev.Meta
			metaJSON = &m
		}
		if _, err := stmt.Exec(ev.UserID, ev.LanguageCode, ev.EventType, ev.XPDelta, ev.OccurredAt, metaJSON); err != nil {
			return fmt.Errorf("insert seed event: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListEvents(page, limit int, eventType string) ([]models.LearningEvent, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM learning_events`
	if eventType != "" {
		countQuery += ` WHERE event_type = $1`
		if err := s.db.QueryRow(countQuery, eventType).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count events: %w", err)
		}
	} else {
		if err := s.db.QueryRow(countQuery).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count events: %w", err)
		}
	}

	offset := (page - 1) * limit
	var rows *sql.Rows
	var err error
	if eventType != "" {
		rows, err = s.db.Query(
			`SELECT id, user_id, language_code, event_type, xp_delta, occurred_at, COALESCE(meta::text, '')
			 FROM learning_events WHERE event_type = $1
			 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`,
			eventType, limit, offset,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT id, user_id, language_code, event_type, xp_delta, occurred_at, COALESCE(meta::text, '')
			 FROM learning_events
			 ORDER BY occurred_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.LearningEvent
	for rows.Next() {
		var ev models.LearningEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.LanguageCode, &ev.EventType, &ev.XPDelta, &ev.OccurredAt, &ev.Meta); err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	if events == nil {
		events = []models.LearningEvent{}
	}
	return events, total, rows.Err()
}

// EventStats counts events per type, optionally scoped to one user.
func (s *Store) EventStats(userID int64) (map[string]int, error) {
	var rows *sql.Rows
	var err error
	if userID > 0 {
		rows, err = s.db.Query(
			`SELECT event_type, COUNT(*) FROM learning_events WHERE user_id = $1 GROUP BY event_type`,
			userID,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT event_type, COUNT(*) FROM learning_events GROUP BY event_type`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		stats[eventType] = count
	}
	return stats, rows.Err()
}

// StreamEvents walks the full event history in insertion order, calling fn
// for each row. The whole recalculation input passes through here; there is
// deliberately no pagination (known scaling limit).
func (s *Store) StreamEvents(fn func(models.LearningEvent)) error {
	rows, err := s.db.Query(
		`SELECT id, user_id, language_code, event_type, xp_delta, occurred_at
		 FROM learning_events ORDER BY id`,
	)
	if err != nil {
		return fmt.Errorf("read learning events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev models.LearningEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.LanguageCode, &ev.EventType, &ev.XPDelta, &ev.OccurredAt); err != nil {
			return fmt.Errorf("scan learning event: %w", err)
		}
		fn(ev)
	}
	return rows.Err()
}

// ── User Progress ───────────────────────────────────────

// UpsertProgress writes one derived progress row. Keyed on the composite
// (user_id, language_code) constraint so recalculation is re-runnable.
func (s *Store) UpsertProgress(key Key, xpTotal int64, level int, lastActivity time.Time) error {
	var last *time.Time
	if !lastActivity.IsZero() {
		last = &lastActivity
	}
	_, err := s.db.Exec(
		`INSERT INTO user_progress (user_id, language_code, xp_total, current_level, last_activity_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (user_id, language_code) DO UPDATE SET
		    xp_total = EXCLUDED.xp_total,
		    current_level = EXCLUDED.current_level,
		    last_activity_at = EXCLUDED.last_activity_at,
		    updated_at = NOW()`,
		key.UserID, key.LanguageCode, xpTotal, level, last,
	)
	return err
}

func (s *Store) GetUserProgress(userID int64) ([]models.UserProgress, error) {
	rows, err := s.db.Query(
		`SELECT user_id, language_code, xp_total, current_level, last_activity_at, updated_at
		 FROM user_progress WHERE user_id = $1 ORDER BY language_code`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get user progress: %w", err)
	}
	defer rows.Close()

	var progress []models.UserProgress
	for rows.Next() {
		var p models.UserProgress
		if err := rows.Scan(&p.UserID, &p.LanguageCode, &p.XPTotal, &p.CurrentLevel, &p.LastActivityAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	if progress == nil {
		progress = []models.UserProgress{}
	}
	return progress, rows.Err()
}

func (s *Store) UserExists(userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}
