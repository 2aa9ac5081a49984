// internal/daily/daily.go
//
// Deterministic target selection for the Daily Challenge: everyone who
// plays on the same date hunts the same color. The color is derived
// from HMAC(salt, YYYY-MM-DD) so it cannot be predicted without the
// server salt but is stable for the whole day.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/huehunt/go-server/internal/colorspace"
	"github.com/huehunt/go-server/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TargetColor returns the deterministic target for a date. Hue covers
// the full wheel; saturation stays inside the same [20,90] band the
// regular game draws from.
func TargetColor(date time.Time, salt string) colorspace.Color {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes pick the hue, next 8 the saturation
	hue := binary.BigEndian.Uint64(sum[:8]) % 360
	satSpan := uint64(game.MaxTargetSat - game.MinTargetSat + 1)
	sat := game.MinTargetSat + int(binary.BigEndian.Uint64(sum[8:16])%satSpan)
	return colorspace.Color{Hue: float64(hue), Saturation: float64(sat)}
}
