// internal/game/types.go
//
// Core type definitions for the hue-hunt game engine.
// Defines:
//   - Tier: congratulatory bucket for a single guess score.
//   - Round: one target color plus the (at most one) guess against it.
//   - Session: state for a single in-progress or finished game.

package game

import "github.com/huehunt/go-server/internal/colorspace"

// Tier buckets a per-round score for the result message shown to the
// player.
type Tier string

const (
	TierPerfect       Tier = "perfect"       // score ≥ 800
	TierExcellent     Tier = "excellent"     // score ≥ 600
	TierGreat         Tier = "great"         // score ≥ 400
	TierGood          Tier = "good"          // score ≥ 200
	TierEncouragement Tier = "encouragement" // everything else
)

// State is the coarse session lifecycle. A session starts Idle, a round
// makes it RoundActive, a guess resolves it, and after the final round
// resolves it is GameOver.
type State string

const (
	StateIdle          State = "idle"
	StateRoundActive   State = "active"
	StateRoundResolved State = "resolved"
	StateGameOver      State = "over"
)

// Round holds one target and the guess made against it. Guess, Distance
// and Score are set together, exactly once, when the player guesses.
type Round struct {
	Target   colorspace.Color  // Color the player was shown.
	Guess    *colorspace.Color // nil until the player guesses.
	Distance float64           // Combined hue/saturation distance (0–100 scale).
	Accuracy float64           // 100 - Distance, floored at 0.
	Score    int               // Points earned, 0–1000.
}

// Guessed reports whether this round has been resolved.
func (r *Round) Guessed() bool { return r.Guess != nil }

// Session holds the state of a single game: up to MaxRounds rounds, a
// running total, and the per-round history kept for the leaderboard.
type Session struct {
	ID         string  // Unique session identifier (random hex string).
	Rounds     []Round // Rounds played so far (last one may be unresolved).
	TotalScore int     // Sum of resolved round scores.

	// Per-game history, reset with the session. Accuracies feeds the
	// mean-accuracy leaderboard stat.
	Presented  []colorspace.Color
	GuessedAll []colorspace.Color
	Accuracies []float64
}
