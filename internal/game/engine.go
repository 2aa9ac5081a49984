// internal/game/engine.go
//
// Core game engine for a single hue-hunt session.
// Responsibilities:
//   - Create new sessions and draw random target colors per round.
//   - Validate and score guesses against the current target.
//   - Track state transitions: idle → active → resolved → (active | over).
//
// Notes:
//   - Coordinate clamping is the caller's job (HTTP layer); the engine
//     works in already-clamped canvas coordinates.
//   - randomID() is a compact hex identifier for correlating server state.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math"
	"math/big"

	"github.com/huehunt/go-server/internal/colorspace"
)

// MaxRounds is the fixed length of a game.
const MaxRounds = 5

// Target saturation is drawn from [MinTargetSat, MaxTargetSat] so
// targets never sit on the washed-out or oversaturated edges of the map.
const (
	MinTargetSat = 20
	MaxTargetSat = 90
)

var (
	// ErrRoundOpen is returned by StartRound while the current round is
	// still unresolved.
	ErrRoundOpen = errors.New("round still active")
	// ErrAlreadyGuessed is returned for a second guess in the same round.
	ErrAlreadyGuessed = errors.New("already guessed")
	// ErrNoRound is returned when a guess arrives with no active round.
	ErrNoRound = errors.New("no active round")
	// ErrGameOver is returned once all rounds are resolved.
	ErrGameOver = errors.New("game over")
)

// New constructs a fresh session with no rounds started.
func New() *Session {
	return &Session{ID: randomID()}
}

// State reports where the session is in its lifecycle.
func (s *Session) State() State {
	switch {
	case len(s.Rounds) == 0:
		return StateIdle
	case !s.current().Guessed():
		return StateRoundActive
	case len(s.Rounds) >= MaxRounds:
		return StateGameOver
	default:
		return StateRoundResolved
	}
}

// RoundNumber is the 1-based index of the latest round, for "round n/5"
// display. Zero before the first round starts.
func (s *Session) RoundNumber() int { return len(s.Rounds) }

// StartRound draws a new random target and opens the next round.
// Hue is uniform over [0,360) at integer granularity, saturation uniform
// over [20,90]. Rejected while a round is unresolved or after the game
// is over.
func (s *Session) StartRound() (*Round, error) {
	switch s.State() {
	case StateRoundActive:
		return nil, ErrRoundOpen
	case StateGameOver:
		return nil, ErrGameOver
	}
	target := colorspace.Color{
		Hue:        float64(randomInt(360)),
		Saturation: float64(MinTargetSat + randomInt(MaxTargetSat-MinTargetSat+1)),
	}
	s.Rounds = append(s.Rounds, Round{Target: target})
	s.Presented = append(s.Presented, target)
	return s.current(), nil
}

// GuessResult is what a single resolved guess reports back.
type GuessResult struct {
	Guess    colorspace.Color
	Target   colorspace.Color
	Distance float64
	Accuracy float64
	Score    int
	Tier     Tier
}

// SubmitGuess scores a click at canvas position (px,py) on a w×h surface
// against the current round's target. The position must already be
// clamped to [0,w]×[0,h].
//
// Scoring:
//   - hue distance is circular, rescaled from 0–360 to the 0–100
//     saturation scale;
//   - combined distance is the Euclidean norm of the two components;
//   - accuracy = max(0, 100 - distance);
//   - score = round(1000 · (accuracy/100)²), so near-exact guesses are
//     rewarded disproportionately.
//
// A second guess in the same round is rejected with ErrAlreadyGuessed
// and changes nothing.
func (s *Session) SubmitGuess(px, py, w, h float64) (*GuessResult, error) {
	if len(s.Rounds) == 0 {
		return nil, ErrNoRound
	}
	r := s.current()
	if r.Guessed() {
		if s.State() == StateGameOver {
			return nil, ErrGameOver
		}
		return nil, ErrAlreadyGuessed
	}

	guess := colorspace.FromPosition(px, py, w, h)
	dist, accuracy, score := ScoreGuess(guess, r.Target)

	r.Guess = &guess
	r.Distance = dist
	r.Accuracy = accuracy
	r.Score = score
	s.TotalScore += score
	s.GuessedAll = append(s.GuessedAll, guess)
	s.Accuracies = append(s.Accuracies, accuracy)

	return &GuessResult{
		Guess:    guess,
		Target:   r.Target,
		Distance: dist,
		Accuracy: accuracy,
		Score:    score,
		Tier:     TierFor(score),
	}, nil
}

// ScoreGuess evaluates one guess against a target: combined distance,
// accuracy = max(0, 100 - distance), and the quadratic-falloff score
// round(1000 · (accuracy/100)²). Shared by the session engine and the
// Daily Challenge.
func ScoreGuess(guess, target colorspace.Color) (distance, accuracy float64, score int) {
	distance = colorspace.Distance(guess, target)
	accuracy = math.Max(0, 100-distance)
	score = int(math.Round(1000 * (accuracy / 100) * (accuracy / 100)))
	return distance, accuracy, score
}

// MeanAccuracy is the arithmetic mean of per-round accuracies, 0 when no
// rounds have resolved.
func (s *Session) MeanAccuracy() float64 {
	if len(s.Accuracies) == 0 {
		return 0
	}
	var sum float64
	for _, a := range s.Accuracies {
		sum += a
	}
	return sum / float64(len(s.Accuracies))
}

// TierFor maps a round score to its congratulatory bucket.
func TierFor(score int) Tier {
	switch {
	case score >= 800:
		return TierPerfect
	case score >= 600:
		return TierExcellent
	case score >= 400:
		return TierGreat
	case score >= 200:
		return TierGood
	default:
		return TierEncouragement
	}
}

// current returns the latest round. Callers check len(s.Rounds) first.
func (s *Session) current() *Round { return &s.Rounds[len(s.Rounds)-1] }

// randomInt returns a cryptographically random int in [0,n).
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
