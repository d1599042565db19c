package models

import (
	"time"

	"github.com/google/uuid"
)

// ── Cards ─────────────────────────────────────────────────

const (
	CardSourceManual = "manual"
	CardSourceText   = "text"
	CardSourceImage  = "image"
)

type Card struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	LanguageCode string    `json:"language_code"`
	Term         string    `json:"term"`
	Reading      string    `json:"reading,omitempty"`
	Translation  string    `json:"translation"`
	Notes        string    `json:"notes,omitempty"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

type CardInput struct {
	Term        string `json:"term"`
	Reading     string `json:"reading,omitempty"`
	Translation string `json:"translation"`
	Notes       string `json:"notes,omitempty"`
}

// ImportRequest covers the manual and text intake paths. Exactly one of
// Cards or Text must be set.
type ImportRequest struct {
	LanguageCode string      `json:"language_code"`
	Cards        []CardInput `json:"cards,omitempty"`
	Text         string      `json:"text,omitempty"`
}

type ImportResponse struct {
	CardsCreated int    `json:"cards_created"`
	Cards        []Card `json:"cards"`
}

type CardListResponse struct {
	Cards []Card `json:"cards"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
}

// ── Extraction Jobs ───────────────────────────────────────

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ExtractionJob is a queued background extraction: the client creates it,
// then polls until status is completed or failed.
type ExtractionJob struct {
	ID           uuid.UUID  `json:"id"`
	UserID       int64      `json:"user_id"`
	SourceType   string     `json:"source_type"`
	LanguageCode string     `json:"language_code"`
	Payload      string     `json:"-"`
	Status       string     `json:"status"`
	CardsCreated int        `json:"cards_created"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type CreateJobRequest struct {
	SourceType   string `json:"source_type"`
	LanguageCode string `json:"language_code"`
	Payload      string `json:"payload"` // raw text, or base64 image data
}
