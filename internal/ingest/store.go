package ingest

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phraseflow/backend/internal/models"
)

var ErrJobNotFound = errors.New("extraction job not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Cards ─────────────────────────────────────────────────

// InsertCards writes a batch in one transaction and returns the created rows.
func (s *Store) InsertCards(userID int64, languageCode, source string, inputs []models.CardInput) ([]models.Card, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin card insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO cards (user_id, language_code, term, reading, translation, notes, source)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)
		 RETURNING id, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare card insert: %w", err)
	}
	defer stmt.Close()

	cards := make([]models.Card, 0, len(inputs))
	for _, in := range inputs {
		card := models.Card{
			UserID:       userID,
			LanguageCode: languageCode,
			Term:         in.Term,
			Reading:      in.Reading,
			Translation:  in.Translation,
			Notes:        in.Notes,
			Source:       source,
		}
		if err := stmt.QueryRow(
			userID, languageCode, in.Term, in.Reading, in.Translation, in.Notes, source,
		).Scan(&card.ID, &card.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert card %q: %w", in.Term, err)
		}
		cards = append(cards, card)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit card insert: %w", err)
	}
	return cards, nil
}

func (s *Store) ListCards(userID int64, page, limit int, languageCode string) ([]models.Card, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if languageCode != "" {
		where += ` AND language_code = $2`
		args = append(args, languageCode)
	}

	var total int
	if err := s.db.QueryRow(
		fmt.Sprintf(`SELECT COUNT(*) FROM cards %s`, where), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cards: %w", err)
	}

	offset := (page - 1) * limit
	query := fmt.Sprintf(
		`SELECT id, user_id, language_code, term, COALESCE(reading, ''),
		        translation, COALESCE(notes, ''), source, created_at
		 FROM cards %s
		 ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.LanguageCode, &c.Term, &c.Reading,
			&c.Translation, &c.Notes, &c.Source, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		cards = append(cards, c)
	}
	if cards == nil {
		cards = []models.Card{}
	}
	return cards, total, rows.Err()
}

// ── Extraction Jobs ───────────────────────────────────────

func (s *Store) CreateJob(job *models.ExtractionJob) error {
	return s.db.QueryRow(
		`INSERT INTO extraction_jobs (id, user_id, source_type, language_code, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		job.ID, job.UserID, job.SourceType, job.LanguageCode, job.Payload,
	).Scan(&job.CreatedAt)
}

func (s *Store) GetJob(id uuid.UUID, userID int64) (*models.ExtractionJob, error) {
	var job models.ExtractionJob
	var errMsg sql.NullString
	err := s.db.QueryRow(
		`SELECT id, user_id, source_type, language_code, status, cards_created,
		        error_message, created_at, started_at, completed_at
		 FROM extraction_jobs WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&job.ID, &job.UserID, &job.SourceType, &job.LanguageCode, &job.Status,
		&job.CardsCreated, &errMsg, &job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get extraction job: %w", err)
	}
	job.ErrorMessage = errMsg.String
	return &job, nil
}

// ClaimNextJob atomically flips the oldest pending job to processing.
// SKIP LOCKED keeps multiple workers from fighting over the same row.
// Returns nil, nil when the queue is empty.
func (s *Store) ClaimNextJob() (*models.ExtractionJob, error) {
	var job models.ExtractionJob
	err := s.db.QueryRow(
		`UPDATE extraction_jobs SET status = 'processing', started_at = NOW()
		 WHERE id = (
		     SELECT id FROM extraction_jobs
		     WHERE status = 'pending'
		     ORDER BY created_at
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, user_id, source_type, language_code, payload, created_at`,
	).Scan(&job.ID, &job.UserID, &job.SourceType, &job.LanguageCode, &job.Payload, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim extraction job: %w", err)
	}
	job.Status = models.JobProcessing
	return &job, nil
}

func (s *Store) CompleteJob(id uuid.UUID, cardsCreated int) error {
	_, err := s.db.Exec(
		`UPDATE extraction_jobs SET status = 'completed', cards_created = $2, completed_at = NOW()
		 WHERE id = $1`,
		id, cardsCreated,
	)
	return err
}

func (s *Store) FailJob(id uuid.UUID, message string) error {
	_, err := s.db.Exec(
		`UPDATE extraction_jobs SET status = 'failed', error_message = $2, completed_at = NOW()
		 WHERE id = $1`,
		id, message,
	)
	return err
}

// RequeueStaleJobs returns processing jobs older than the cutoff to pending,
// covering a worker that died mid-job.
func (s *Store) RequeueStaleJobs(olderThan time.Duration) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE extraction_jobs SET status = 'pending', started_at = NULL
		 WHERE status = 'processing' AND started_at < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
