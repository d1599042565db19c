package models

import "time"

// ── Source-of-Truth Records ───────────────────────────────

// LearningEvent is an immutable fact in the event log. A zero XPDelta means
// "use the current xp_settings value for this event type" at recalculation
// time, not "this event grants no XP".
type LearningEvent struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	LanguageCode string    `json:"language_code"`
	EventType    string    `json:"event_type"`
	XPDelta      int       `json:"xp_delta"`
	OccurredAt   time.Time `json:"occurred_at"`
	Meta         string    `json:"meta,omitempty"`
}

type XPSetting struct {
	EventType string    `json:"event_type"`
	XPValue   int       `json:"xp_value"`
	IsActive  bool      `json:"is_active"`
	Label     string    `json:"label,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Level struct {
	Level       int    `json:"level"`
	XPThreshold int64  `json:"xp_threshold"`
	Title       string `json:"title,omitempty"`
}

// UserProgress is the derived aggregate for one (user, language) pair. It is
// a cache over the event log and is fully rebuilt by recalculation.
type UserProgress struct {
	UserID         int64      `json:"user_id"`
	LanguageCode   string     `json:"language_code"`
	XPTotal        int64      `json:"xp_total"`
	CurrentLevel   int        `json:"current_level"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ── Request Types ─────────────────────────────────────────

type LogEventRequest struct {
	LanguageCode string `json:"language_code"`
	EventType    string `json:"event_type"`
	XPDelta      int    `json:"xp_delta,omitempty"`
	Meta         string `json:"meta,omitempty"`
}

type XPSettingRequest struct {
	EventType string `json:"event_type"`
	XPValue   int    `json:"xp_value"`
	IsActive  *bool  `json:"is_active,omitempty"`
	Label     string `json:"label,omitempty"`
}

type LevelRequest struct {
	Level       int    `json:"level"`
	XPThreshold int64  `json:"xp_threshold"`
	Title       string `json:"title,omitempty"`
}

type SeedEventsRequest struct {
	UserID       int64  `json:"user_id"`
	LanguageCode string `json:"language_code"`
	Density      int    `json:"density"` // 1=sparse, 2=medium, 3=dense
}

// ── Response Types ────────────────────────────────────────

// RecalcSummary reports what a full recalculation run did.
type RecalcSummary struct {
	EventsProcessed int    `json:"events_processed"`
	EventsMatched   int    `json:"events_matched"`
	EventsUnmatched int    `json:"events_unmatched"`
	TotalXP         int64  `json:"total_xp"`
	RowsUpserted    int    `json:"rows_upserted"`
	UpsertFailures  int    `json:"upsert_failures"`
	Details         string `json:"details"`
}

type EventListResponse struct {
	Events []LearningEvent `json:"events"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
}

type EventStatsResponse struct {
	Stats map[string]int `json:"stats"`
}
