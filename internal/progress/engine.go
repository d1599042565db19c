package progress

import (
	"time"

	"github.com/phraseflow/backend/internal/models"
)

// Key identifies one progress row: a user learning one language.
type Key struct {
	UserID       int64
	LanguageCode string
}

// Totals is the running aggregate for a Key during recalculation.
type Totals struct {
	XPTotal      int64
	LastActivity time.Time
}

// EffectiveDelta resolves the XP value of a single event. A nonzero logged
// delta wins; a zero delta means "look up the current setting for this event
// type", falling back to 0 when no setting exists. The second return reports
// whether the event type matched a setting at all.
func EffectiveDelta(ev models.LearningEvent, settings map[string]int) (int, bool) {
	_, matched := settings[ev.EventType]
	if ev.XPDelta != 0 {
		return ev.XPDelta, matched
	}
	return settings[ev.EventType], matched
}

// DeriveLevel returns the highest level whose threshold does not exceed
// xpTotal. Levels must be sorted ascending by threshold. Totals below every
// threshold (including negative ones) land on level 1.
func DeriveLevel(levels []models.Level, xpTotal int64) int {
	best := 1
	for _, l := range levels {
		if l.XPThreshold <= xpTotal {
			best = l.Level
		} else {
			break
		}
	}
	return best
}

// Accumulator reduces the event stream into per-key totals and run counters.
type Accumulator struct {
	settings map[string]int
	totals   map[Key]*Totals

	Processed int
	Matched   int
	Unmatched int
	TotalXP   int64
}

func NewAccumulator(settings map[string]int) *Accumulator {
	return &Accumulator{
		settings: settings,
		totals:   make(map[Key]*Totals),
	}
}

func (a *Accumulator) Add(ev models.LearningEvent) {
	delta, matched := EffectiveDelta(ev, a.settings)

	a.Processed++
	if matched {
		a.Matched++
	} else {
		a.Unmatched++
	}
	a.TotalXP += int64(delta)

	key := Key{UserID: ev.UserID, LanguageCode: ev.LanguageCode}
	t, ok := a.totals[key]
	if !ok {
		t = &Totals{}
		a.totals[key] = t
	}
	t.XPTotal += int64(delta)
	if ev.OccurredAt.After(t.LastActivity) {
		t.LastActivity = ev.OccurredAt
	}
}

// Totals returns the accumulated aggregates keyed by (user, language).
func (a *Accumulator) Totals() map[Key]Totals {
	out := make(map[Key]Totals, len(a.totals))
	for k, v := range a.totals {
		out[k] = *v
	}
	return out
}
