package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

type ExtractedBatch struct {
	Cards []ExtractedCard `json:"cards"`
}

type ExtractedCard struct {
	Term        string `json:"term"`
	Reading     string `json:"reading,omitempty"`
	Translation string `json:"translation"`
	Notes       string `json:"notes,omitempty"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseResponse(responseBody string) (*ExtractedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch ExtractedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

const maxBatchSize = 200

func validateBatch(batch *ExtractedBatch) error {
	var errs []string

	if len(batch.Cards) == 0 {
		return &ValidationError{Errors: []string{"no cards in batch"}}
	}
	if len(batch.Cards) > maxBatchSize {
		return &ValidationError{Errors: []string{fmt.Sprintf("batch of %d cards exceeds limit of %d", len(batch.Cards), maxBatchSize)}}
	}

	seen := make(map[string]int)

	for i, c := range batch.Cards {
		cNum := i + 1

		if strings.TrimSpace(c.Term) == "" {
			errs = append(errs, fmt.Sprintf("card %d: empty term", cNum))
		}
		if strings.TrimSpace(c.Translation) == "" {
			errs = append(errs, fmt.Sprintf("card %d: empty translation", cNum))
		}
		if len(c.Term) > 200 {
			errs = append(errs, fmt.Sprintf("card %d: term length %d exceeds 200", cNum, len(c.Term)))
		}
		if len(c.Translation) > 500 {
			errs = append(errs, fmt.Sprintf("card %d: translation length %d exceeds 500", cNum, len(c.Translation)))
		}

		// Duplicate terms are a model quirk, not a hard failure.
		key := strings.ToLower(strings.TrimSpace(c.Term))
		if first, ok := seen[key]; ok && key != "" {
			log.Printf("WARNING: cards %d and %d share the term %q", first, cNum, c.Term)
		} else {
			seen[key] = cNum
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}
