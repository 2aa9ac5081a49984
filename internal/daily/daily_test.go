package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/huehunt/go-server/internal/game"
)

func TestDateKey(t *testing.T) {
	ts := time.Date(2026, 8, 23, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-23", DateKey(ts))
	// Local times normalize to UTC before keying.
	loc := time.FixedZone("east", 5*3600)
	assert.Equal(t, "2026-08-23", DateKey(time.Date(2026, 8, 24, 3, 0, 0, 0, loc)))
}

func TestTargetColorDeterministic(t *testing.T) {
	day := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	a := TargetColor(day, "salt")
	// Any instant within the same UTC day yields the same target.
	b := TargetColor(day.Add(17*time.Hour), "salt")
	assert.Equal(t, a, b)

	// Different salt or different day picks a different color
	// (HMAC collision on both components is not a realistic worry).
	assert.NotEqual(t, a, TargetColor(day, "other-salt"))
	assert.NotEqual(t, a, TargetColor(day.AddDate(0, 0, 1), "salt"))
}

func TestTargetColorStaysInBand(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		c := TargetColor(day.AddDate(0, 0, i), "salt")
		assert.GreaterOrEqual(t, c.Hue, 0.0)
		assert.Less(t, c.Hue, 360.0)
		assert.GreaterOrEqual(t, c.Saturation, float64(game.MinTargetSat))
		assert.LessOrEqual(t, c.Saturation, float64(game.MaxTargetSat))
	}
}
