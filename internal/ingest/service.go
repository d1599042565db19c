package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phraseflow/backend/internal/models"
)

const (
	maxTextPayload  = 50_000
	maxImagePayload = 10 << 20 // base64 characters, ~7.5MB decoded
	jobTimeout      = 2 * time.Minute
)

type Service struct {
	store     *Store
	generator *Generator
}

func NewService(store *Store, generator *Generator) *Service {
	return &Service{store: store, generator: generator}
}

// ── Import Paths ──────────────────────────────────────────

// Import handles the synchronous intake paths: a list of complete cards, or a
// short text run through extraction inline.
func (s *Service) Import(ctx context.Context, userID int64, req models.ImportRequest) (*models.ImportResponse, error) {
	if req.LanguageCode == "" {
		return nil, fmt.Errorf("language_code is required")
	}
	if len(req.Cards) > 0 && req.Text != "" {
		return nil, fmt.Errorf("provide either cards or text, not both")
	}

	switch {
	case len(req.Cards) > 0:
		return s.importManual(userID, req)
	case req.Text != "":
		return s.importText(ctx, userID, req)
	default:
		return nil, fmt.Errorf("provide either cards or text")
	}
}

func (s *Service) importManual(userID int64, req models.ImportRequest) (*models.ImportResponse, error) {
	if len(req.Cards) > maxBatchSize {
		return nil, fmt.Errorf("batch of %d cards exceeds limit of %d", len(req.Cards), maxBatchSize)
	}
	for i, c := range req.Cards {
		if strings.TrimSpace(c.Term) == "" {
			return nil, fmt.Errorf("card %d: term is required", i+1)
		}
		if strings.TrimSpace(c.Translation) == "" {
			return nil, fmt.Errorf("card %d: translation is required", i+1)
		}
	}

	cards, err := s.store.InsertCards(userID, req.LanguageCode, models.CardSourceManual, req.Cards)
	if err != nil {
		return nil, fmt.Errorf("import cards: %w", err)
	}
	return &models.ImportResponse{CardsCreated: len(cards), Cards: cards}, nil
}

func (s *Service) importText(ctx context.Context, userID int64, req models.ImportRequest) (*models.ImportResponse, error) {
	if len(req.Text) > maxTextPayload {
		return nil, fmt.Errorf("text exceeds %d characters; submit it as an extraction job instead", maxTextPayload)
	}

	batch, _, err := s.generator.ExtractFromText(ctx, req.LanguageCode, req.Text)
	if err != nil {
		return nil, err
	}

	cards, err := s.store.InsertCards(userID, req.LanguageCode, models.CardSourceText, batchToInputs(batch))
	if err != nil {
		return nil, fmt.Errorf("save extracted cards: %w", err)
	}
	return &models.ImportResponse{CardsCreated: len(cards), Cards: cards}, nil
}

func batchToInputs(batch *ExtractedBatch) []models.CardInput {
	inputs := make([]models.CardInput, len(batch.Cards))
	for i, c := range batch.Cards {
		inputs[i] = models.CardInput{
			Term:        c.Term,
			Reading:     c.Reading,
			Translation: c.Translation,
			Notes:       c.Notes,
		}
	}
	return inputs
}

func (s *Service) ListCards(userID int64, page, limit int, languageCode string) (*models.CardListResponse, error) {
	cards, total, err := s.store.ListCards(userID, page, limit, languageCode)
	if err != nil {
		return nil, err
	}
	return &models.CardListResponse{Cards: cards, Total: total, Page: page}, nil
}

// ── Extraction Jobs ───────────────────────────────────────

func (s *Service) CreateJob(userID int64, req models.CreateJobRequest) (*models.ExtractionJob, error) {
	if req.LanguageCode == "" {
		return nil, fmt.Errorf("language_code is required")
	}
	if req.Payload == "" {
		return nil, fmt.Errorf("payload is required")
	}
	switch req.SourceType {
	case models.CardSourceText:
		if len(req.Payload) > maxTextPayload {
			return nil, fmt.Errorf("text payload exceeds %d characters", maxTextPayload)
		}
	case models.CardSourceImage:
		if len(req.Payload) > maxImagePayload {
			return nil, fmt.Errorf("image payload too large")
		}
	default:
		return nil, fmt.Errorf("source_type must be text or image")
	}

	job := &models.ExtractionJob{
		ID:           uuid.New(),
		UserID:       userID,
		SourceType:   req.SourceType,
		LanguageCode: req.LanguageCode,
		Payload:      req.Payload,
		Status:       models.JobPending,
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("create extraction job: %w", err)
	}
	return job, nil
}

func (s *Service) GetJob(jobID string, userID int64) (*models.ExtractionJob, error) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id")
	}
	return s.store.GetJob(id, userID)
}

// ── Background Worker ─────────────────────────────────────

// StartExtractionWorker drains the extraction job queue. One job at a time;
// failures mark the job failed and the loop moves on.
func (s *Service) StartExtractionWorker(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	log.Println("[ingest] Extraction worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[ingest] Extraction worker shutting down")
			return
		case <-ticker.C:
			if n, err := s.store.RequeueStaleJobs(10 * time.Minute); err != nil {
				log.Printf("[ingest] requeue stale jobs failed: %v", err)
			} else if n > 0 {
				log.Printf("[ingest] requeued %d stale extraction jobs", n)
			}

			for {
				job, err := s.store.ClaimNextJob()
				if err != nil {
					log.Printf("[ingest] claim job failed: %v", err)
					break
				}
				if job == nil {
					break
				}
				s.processJob(ctx, job)
			}
		}
	}
}

func (s *Service) processJob(ctx context.Context, job *models.ExtractionJob) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	log.Printf("[ingest] processing job %s (%s, %s)", job.ID, job.SourceType, job.LanguageCode)

	var batch *ExtractedBatch
	var err error
	switch job.SourceType {
	case models.CardSourceImage:
		mediaType, data, decodeErr := splitImagePayload(job.Payload)
		if decodeErr != nil {
			err = decodeErr
		} else {
			batch, _, err = s.generator.ExtractFromImage(jobCtx, job.LanguageCode, mediaType, data)
		}
	default:
		batch, _, err = s.generator.ExtractFromText(jobCtx, job.LanguageCode, job.Payload)
	}
	if err != nil {
		log.Printf("[ingest] job %s failed: %v", job.ID, err)
		if failErr := s.store.FailJob(job.ID, err.Error()); failErr != nil {
			log.Printf("[ingest] mark job %s failed: %v", job.ID, failErr)
		}
		return
	}

	source := models.CardSourceText
	if job.SourceType == models.CardSourceImage {
		source = models.CardSourceImage
	}
	cards, err := s.store.InsertCards(job.UserID, job.LanguageCode, source, batchToInputs(batch))
	if err != nil {
		log.Printf("[ingest] job %s failed to save cards: %v", job.ID, err)
		if failErr := s.store.FailJob(job.ID, "failed to save extracted cards"); failErr != nil {
			log.Printf("[ingest] mark job %s failed: %v", job.ID, failErr)
		}
		return
	}

	if err := s.store.CompleteJob(job.ID, len(cards)); err != nil {
		log.Printf("[ingest] mark job %s completed: %v", job.ID, err)
		return
	}
	log.Printf("[ingest] job %s completed: %d cards", job.ID, len(cards))
}

// splitImagePayload accepts either a bare base64 string (assumed JPEG) or a
// data URL like "data:image/png;base64,....".
func splitImagePayload(payload string) (mediaType, data string, err error) {
	if !strings.HasPrefix(payload, "data:") {
		return "image/jpeg", payload, nil
	}
	rest := strings.TrimPrefix(payload, "data:")
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return "", "", fmt.Errorf("image payload must be base64-encoded")
	}
	mediaType = rest[:semi]
	data = rest[semi+len(";base64,"):]
	if mediaType == "" || data == "" {
		return "", "", fmt.Errorf("malformed image data URL")
	}
	return mediaType, data, nil
}
