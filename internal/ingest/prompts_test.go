package ingest

import (
	"strings"
	"testing"
)

func TestExtractionSystemPrompt_DeclaresSchema(t *testing.T) {
	prompt := ExtractionSystemPrompt()
	for _, field := range []string{`"cards"`, `"term"`, `"translation"`} {
		if !strings.Contains(prompt, field) {
			t.Errorf("system prompt missing schema field %s", field)
		}
	}
}

func TestBuildTextUserPrompt(t *testing.T) {
	prompt := BuildTextUserPrompt("ja", "猫が好きです。")
	if !strings.Contains(prompt, "ja") {
		t.Error("user prompt missing language code")
	}
	if !strings.Contains(prompt, "猫が好きです。") {
		t.Error("user prompt missing source text")
	}
}

func TestBuildImageUserPrompt(t *testing.T) {
	prompt := BuildImageUserPrompt("ko")
	if !strings.Contains(prompt, "ko") {
		t.Error("image prompt missing language code")
	}
}
