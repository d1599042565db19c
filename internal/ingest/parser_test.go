package ingest

import (
	"errors"
	"strings"
	"testing"
)

const validResponse = `{"cards":[
	{"term":"猫","reading":"ねこ","translation":"cat","notes":"common noun"},
	{"term":"犬","reading":"いぬ","translation":"dog"}
]}`

func TestParseResponse_Valid(t *testing.T) {
	batch, err := ParseResponse(validResponse)
	if err != nil {
		t.Fatalf("expected valid response to parse, got %v", err)
	}
	if len(batch.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(batch.Cards))
	}
	if batch.Cards[0].Term != "猫" || batch.Cards[0].Reading != "ねこ" {
		t.Errorf("first card mismatch: %+v", batch.Cards[0])
	}
	if batch.Cards[1].Notes != "" {
		t.Errorf("expected empty notes, got %q", batch.Cards[1].Notes)
	}
}

func TestParseResponse_StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	batch, err := ParseResponse(fenced)
	if err != nil {
		t.Fatalf("expected fenced response to parse, got %v", err)
	}
	if len(batch.Cards) != 2 {
		t.Errorf("expected 2 cards, got %d", len(batch.Cards))
	}

	bareFence := "```\n" + validResponse + "\n```"
	if _, err := ParseResponse(bareFence); err != nil {
		t.Errorf("expected bare-fenced response to parse, got %v", err)
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	if _, err := ParseResponse("Sure! Here are your cards: ..."); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestParseResponse_EmptyBatch(t *testing.T) {
	_, err := ParseResponse(`{"cards":[]}`)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParseResponse_MissingFields(t *testing.T) {
	_, err := ParseResponse(`{"cards":[{"term":"","translation":"cat"},{"term":"犬","translation":"  "}]}`)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Errors) != 2 {
		t.Errorf("expected 2 validation errors, got %d: %v", len(vErr.Errors), vErr.Errors)
	}
}

func TestParseResponse_OversizedBatch(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"cards":[`)
	for i := 0; i <= maxBatchSize; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"term":"a","translation":"b"}`)
	}
	b.WriteString(`]}`)

	var vErr *ValidationError
	if _, err := ParseResponse(b.String()); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for oversized batch, got %v", err)
	}
}

func TestMockClient_ProducesParseableBatch(t *testing.T) {
	batch, err := ParseResponse(buildMockJSON())
	if err != nil {
		t.Fatalf("mock output must parse, got %v", err)
	}
	if len(batch.Cards) == 0 {
		t.Error("mock output must contain cards")
	}
}

func TestSplitImagePayload(t *testing.T) {
	mediaType, data, err := splitImagePayload("data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("expected data URL to split, got %v", err)
	}
	if mediaType != "image/png" || data != "AAAA" {
		t.Errorf("got mediaType=%q data=%q", mediaType, data)
	}

	mediaType, data, err = splitImagePayload("AAAA")
	if err != nil {
		t.Fatalf("expected bare base64 to pass through, got %v", err)
	}
	if mediaType != "image/jpeg" || data != "AAAA" {
		t.Errorf("got mediaType=%q data=%q", mediaType, data)
	}

	if _, _, err := splitImagePayload("data:image/png,notbase64"); err == nil {
		t.Error("expected error for non-base64 data URL")
	}
}
