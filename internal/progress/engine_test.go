package progress

import (
	"testing"
	"time"

	"github.com/phraseflow/backend/internal/models"
)

func event(userID int64, lang, eventType string, delta int, occurred time.Time) models.LearningEvent {
	return models.LearningEvent{
		UserID:       userID,
		LanguageCode: lang,
		EventType:    eventType,
		XPDelta:      delta,
		OccurredAt:   occurred,
	}
}

func TestEffectiveDelta_LoggedValueWins(t *testing.T) {
	settings := map[string]int{"audio_play": 5}
	ev := event(1, "en", "audio_play", 12, time.Now())

	delta, matched := EffectiveDelta(ev, settings)
	if delta != 12 {
		t.Errorf("expected logged delta 12, got %d", delta)
	}
	if !matched {
		t.Error("expected event type to match settings")
	}
}

func TestEffectiveDelta_ZeroMeansLookup(t *testing.T) {
	settings := map[string]int{"audio_play": 5}
	ev := event(1, "en", "audio_play", 0, time.Now())

	delta, _ := EffectiveDelta(ev, settings)
	if delta != 5 {
		t.Errorf("expected settings value 5, got %d", delta)
	}
}

func TestEffectiveDelta_UnknownTypeIsZero(t *testing.T) {
	ev := event(1, "en", "mystery_event", 0, time.Now())

	delta, matched := EffectiveDelta(ev, map[string]int{"audio_play": 5})
	if delta != 0 {
		t.Errorf("expected 0 for unknown event type, got %d", delta)
	}
	if matched {
		t.Error("expected unknown event type to be unmatched")
	}
}

func TestDeriveLevel_Thresholds(t *testing.T) {
	levels := []models.Level{
		{Level: 1, XPThreshold: 0},
		{Level: 2, XPThreshold: 100},
		{Level: 3, XPThreshold: 300},
	}

	cases := []struct {
		xp       int64
		expected int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 2},
		{299, 2},
		{300, 3},
		{10000, 3},
	}
	for _, c := range cases {
		if got := DeriveLevel(levels, c.xp); got != c.expected {
			t.Errorf("xp=%d: expected level %d, got %d", c.xp, c.expected, got)
		}
	}
}

func TestDeriveLevel_BelowLowestThreshold(t *testing.T) {
	levels := []models.Level{
		{Level: 1, XPThreshold: 50},
		{Level: 2, XPThreshold: 100},
	}

	if got := DeriveLevel(levels, 10); got != 1 {
		t.Errorf("expected fallback level 1 below lowest threshold, got %d", got)
	}
	if got := DeriveLevel(levels, -20); got != 1 {
		t.Errorf("expected fallback level 1 for negative total, got %d", got)
	}
	if got := DeriveLevel(nil, 500); got != 1 {
		t.Errorf("expected level 1 with no levels defined, got %d", got)
	}
}

func TestAccumulator_EndToEnd(t *testing.T) {
	// Two audio_play events with delta 0 and a setting of 5 each → 10 XP.
	settings := map[string]int{"audio_play": 5}
	acc := NewAccumulator(settings)

	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	acc.Add(event(7, "ja", "audio_play", 0, t1))
	acc.Add(event(7, "ja", "audio_play", 0, t2))

	totals := acc.Totals()
	got, ok := totals[Key{UserID: 7, LanguageCode: "ja"}]
	if !ok {
		t.Fatal("expected totals for user 7 / ja")
	}
	if got.XPTotal != 10 {
		t.Errorf("expected xp_total 10, got %d", got.XPTotal)
	}
	if !got.LastActivity.Equal(t2) {
		t.Errorf("expected last activity %v, got %v", t2, got.LastActivity)
	}
	if acc.Processed != 2 || acc.Matched != 2 || acc.Unmatched != 0 {
		t.Errorf("unexpected counters: processed=%d matched=%d unmatched=%d",
			acc.Processed, acc.Matched, acc.Unmatched)
	}
	if acc.TotalXP != 10 {
		t.Errorf("expected total xp 10, got %d", acc.TotalXP)
	}
}

func TestAccumulator_KeysAreIndependent(t *testing.T) {
	settings := map[string]int{"saved_phrase": 3}
	acc := NewAccumulator(settings)

	now := time.Now().UTC()
	acc.Add(event(1, "en", "saved_phrase", 0, now))
	acc.Add(event(1, "ko", "saved_phrase", 0, now))
	acc.Add(event(2, "en", "saved_phrase", 0, now))

	totals := acc.Totals()
	if len(totals) != 3 {
		t.Fatalf("expected 3 distinct keys, got %d", len(totals))
	}
	for key, tot := range totals {
		if tot.XPTotal != 3 {
			t.Errorf("key %v: expected 3 XP, got %d", key, tot.XPTotal)
		}
	}
}

func TestAccumulator_Idempotence(t *testing.T) {
	// Same inputs reduce to identical totals on every run.
	settings := map[string]int{"word_explore": 2, "tutorial_complete": 10}
	events := []models.LearningEvent{
		event(1, "en", "word_explore", 0, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		event(1, "en", "tutorial_complete", 0, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)),
		event(1, "en", "word_explore", 4, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)),
	}

	run := func() map[Key]Totals {
		acc := NewAccumulator(settings)
		for _, ev := range events {
			acc.Add(ev)
		}
		return acc.Totals()
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("runs produced different key counts: %d vs %d", len(first), len(second))
	}
	for key, tot := range first {
		other := second[key]
		if tot.XPTotal != other.XPTotal || !tot.LastActivity.Equal(other.LastActivity) {
			t.Errorf("key %v differs between runs: %+v vs %+v", key, tot, other)
		}
	}
	if first[Key{1, "en"}].XPTotal != 16 {
		t.Errorf("expected 16 XP (2 + 10 + 4), got %d", first[Key{1, "en"}].XPTotal)
	}
}

func TestAccumulator_Monotonicity(t *testing.T) {
	// Raising an xp_value never decreases any accumulated total.
	events := []models.LearningEvent{
		event(1, "en", "audio_play", 0, time.Now()),
		event(1, "en", "saved_phrase", 0, time.Now()),
		event(2, "ja", "audio_play", 0, time.Now()),
	}

	totalsFor := func(settings map[string]int) map[Key]Totals {
		acc := NewAccumulator(settings)
		for _, ev := range events {
			acc.Add(ev)
		}
		return acc.Totals()
	}

	before := totalsFor(map[string]int{"audio_play": 1, "saved_phrase": 5})
	after := totalsFor(map[string]int{"audio_play": 3, "saved_phrase": 5})

	for key, b := range before {
		a := after[key]
		if a.XPTotal < b.XPTotal {
			t.Errorf("key %v: total decreased from %d to %d after raising a setting", key, b.XPTotal, a.XPTotal)
		}
	}
}
