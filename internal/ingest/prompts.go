package ingest

import (
	"fmt"
	"strings"
)

// ExtractionSystemPrompt defines the card-extraction contract: the model
// returns JSON only, matching the ExtractedBatch schema.
func ExtractionSystemPrompt() string {
	return `You are a language-learning content assistant. You extract vocabulary from learner-provided material and return it as structured flashcard data.

Rules:
- Respond with a single JSON object and nothing else. No prose, no markdown fences.
- Schema: {"cards": [{"term": "...", "reading": "...", "translation": "...", "notes": "..."}]}
- "term" is the word or phrase in the target language, exactly as it appears in the source.
- "reading" is the pronunciation aid (kana, pinyin, romanization) when the script needs one; omit or leave empty otherwise.
- "translation" is a concise English gloss.
- "notes" is optional: part of speech, register, or a short usage hint.
- Extract every distinct vocabulary item a learner would plausibly want to study. Skip proper names, numbers, and filler words.
- Never invent words that are not present in the source material.`
}

// BuildTextUserPrompt wraps raw pasted text for extraction.
func BuildTextUserPrompt(languageCode, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target language: %s\n\n", languageCode)
	b.WriteString("Extract vocabulary cards from the following text:\n\n")
	b.WriteString(text)
	return b.String()
}

// BuildImageUserPrompt accompanies an attached image (photo of a page,
// screenshot, menu) for extraction.
func BuildImageUserPrompt(languageCode string) string {
	return fmt.Sprintf(
		"Target language: %s\n\nExtract vocabulary cards from the attached image. Transcribe terms exactly as written; if part of the image is illegible, skip it rather than guessing.",
		languageCode,
	)
}
