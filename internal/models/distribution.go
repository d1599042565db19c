package models

import (
	"time"

	"github.com/google/uuid"
)

// ── Status & Recurrence Constants ─────────────────────────

const (
	DistributionDraft     = "draft"
	DistributionActive    = "active"
	DistributionExpired   = "expired"
	DistributionCancelled = "cancelled"
)

const (
	RecurrenceOnce    = "once"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Reward is one line of a distribution's payout: a coin grant or one of the
// named credit types.
type Reward struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

type DistributionEvent struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Rewards     []Reward   `json:"rewards"`
	Recurrence  string     `json:"recurrence"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Status      string     `json:"status"`
	ClaimCount  int        `json:"claim_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type DistributionClaim struct {
	ID             int64     `json:"id"`
	EventID        uuid.UUID `json:"event_id"`
	UserID         int64     `json:"user_id"`
	PeriodKey      string    `json:"period_key"`
	ClaimedAt      time.Time `json:"claimed_at"`
	RewardsGranted []Reward  `json:"rewards_granted"`
}

// ── Request Types ─────────────────────────────────────────

type DistributionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Rewards     []Reward   `json:"rewards"`
	Recurrence  string     `json:"recurrence"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ClaimRequest struct {
	EventID string `json:"event_id"`
}

// ── Response Types ────────────────────────────────────────

type DistributionListResponse struct {
	Events []DistributionEvent `json:"events"`
	Total  int                 `json:"total"`
	Page   int                 `json:"page"`
}

// AvailableDistribution is the learner-facing view of a claimable event.
type AvailableDistribution struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Rewards     []Reward  `json:"rewards"`
	Recurrence  string    `json:"recurrence"`
}

type ClaimResponse struct {
	Rewards   []Reward `json:"rewards"`
	PeriodKey string   `json:"period_key"`
}
