// internal/leaderboard/entry.go
//
// Leaderboard entry model and its persistence (JSON) form.
// The on-disk payload is a single JSON array of at most MaxEntries
// objects, sorted descending by score. Readers must survive anything a
// previous version (or a corrupted row) may have written: missing
// fields, the legacy "colors" name for presented colors, non-array color
// values, junk color strings.

package leaderboard

import (
	"encoding/json"

	"github.com/huehunt/go-server/internal/colorspace"
)

const (
	// MaxEntries is the leaderboard length after trimming.
	MaxEntries = 10
	// DisplayColors is the fixed number of color swatches kept per entry.
	DisplayColors = 5
)

// Entry is one persisted historical game result. Immutable once written.
type Entry struct {
	Score           int      `json:"score"`
	Date            string   `json:"date"` // RFC3339
	Rounds          int      `json:"rounds"`
	MeanDistance    float64  `json:"meanDistance"`
	PresentedColors []string `json:"presentedColors"` // hsl(...) strings, exactly DisplayColors
	GuessedColors   []string `json:"guessedColors"`
}

// entryWire is the lenient decode form. Color fields are raw so that a
// non-array value poisons only that field, not the whole payload, and
// the legacy "colors" field name is still accepted.
type entryWire struct {
	Score           int             `json:"score"`
	Date            string          `json:"date"`
	Rounds          int             `json:"rounds"`
	MeanDistance    float64         `json:"meanDistance"`
	PresentedColors json.RawMessage `json:"presentedColors"`
	LegacyColors    json.RawMessage `json:"colors"`
	GuessedColors   json.RawMessage `json:"guessedColors"`
}

// decodeEntries parses a persisted payload. Corrupt JSON yields an empty
// list; per-entry junk is normalized away. Never returns an error.
func decodeEntries(payload []byte) []Entry {
	var wires []entryWire
	if err := json.Unmarshal(payload, &wires); err != nil {
		return []Entry{}
	}
	out := make([]Entry, 0, len(wires))
	for _, w := range wires {
		presented := w.PresentedColors
		if len(presented) == 0 || string(presented) == "null" {
			presented = w.LegacyColors
		}
		out = append(out, Entry{
			Score:           w.Score,
			Date:            w.Date,
			Rounds:          w.Rounds,
			MeanDistance:    w.MeanDistance,
			PresentedColors: normalizeColors(presented),
			GuessedColors:   normalizeColors(w.GuessedColors),
		})
	}
	return out
}

// normalizeColors turns a raw color field into exactly DisplayColors
// valid hsl(...) strings, substituting the neutral placeholder for
// anything missing or unparseable.
func normalizeColors(raw json.RawMessage) []string {
	var list []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &list) // non-array → list stays nil
	}
	out := make([]string, DisplayColors)
	for i := 0; i < DisplayColors; i++ {
		out[i] = colorspace.Placeholder.String()
		if i < len(list) {
			if c, ok := colorspace.Parse(list[i]); ok {
				out[i] = c.String()
			}
		}
	}
	return out
}

// colorStrings renders a color slice for persistence, truncated to
// DisplayColors.
func colorStrings(colors []colorspace.Color) []string {
	if len(colors) > DisplayColors {
		colors = colors[:DisplayColors]
	}
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		out = append(out, c.String())
	}
	return out
}
