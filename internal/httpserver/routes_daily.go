// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode: one shot per day at a
// deterministic shared target color.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's challenge (creates or reuses session)
//   - POST /daily/guess       → submit the single guess for today's color
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each player can play once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on the
// guess. Deterministic target selection is based on date + salt.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/huehunt/go-server/internal/colorspace"
	"github.com/huehunt/go-server/internal/daily"
	"github.com/huehunt/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by owner|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient in-memory state for an unplayed daily.
type dailySession struct {
	GameID   string
	Owner    string
	Date     string
	Target   colorspace.Color
	Start    time.Time
	Finished bool
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// targetNow returns today's date key and deterministic target color.
func (d *dailyServer) targetNow() (date string, target colorspace.Color) {
	now := time.Now().UTC()
	return daily.DateKey(now), daily.TargetColor(now, d.salt)
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

// handleNew creates or reuses a daily session for the current date.
// - If the player already has a DB row for today → return Played=true.
// - Otherwise create/reuse an in-memory session and return GameID.
//
// The target color is never included: the whole game is finding it.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	owner := d.srv.ownerID(w, r)
	date, target := d.targetNow()

	// Check if already played (persisted in DB).
	if played, err := d.store.AlreadyPlayed(r.Context(), owner, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: "", Date: date, Played: true})
		return
	}

	// Reuse or create session in memory.
	key := owner + "|" + date
	d.mu.Lock()
	if sess, ok := d.sessions[key]; ok {
		d.mu.Unlock()
		_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: sess.GameID, Date: date, Played: false})
		return
	}
	sess := &dailySession{
		GameID: genID(),
		Owner:  owner,
		Date:   date,
		Target: target,
		Start:  time.Now(),
	}
	d.sessions[key] = sess
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: sess.GameID, Date: date, Played: false})
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessReq mirrors the regular guess payload.
type dailyGuessReq struct {
	GameID string  `json:"gameId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// dailyGuessRes is the scored result of the single daily guess.
type dailyGuessRes struct {
	Score    int       `json:"score"`
	Accuracy float64   `json:"accuracy"`
	Distance float64   `json:"distance"`
	Tier     game.Tier `json:"tier"`
	Target   colorView `json:"target"`
	Guess    colorView `json:"guess"`
	Date     string    `json:"date"`
}

// handleGuess scores the one daily guess, marks the session finished,
// and persists the result (best effort; the score is still returned if
// the insert fails).
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req dailyGuessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		http.Error(w, `{"error":"bad_size"}`, http.StatusBadRequest)
		return
	}
	owner := d.srv.ownerID(w, r)
	date, _ := d.targetNow()

	key := owner + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok || sess.GameID != req.GameID || sess.Finished {
		d.mu.Unlock()
		http.Error(w, `{"error":"no_active_daily"}`, http.StatusBadRequest)
		return
	}
	sess.Finished = true
	d.mu.Unlock()

	guess := colorspace.FromPosition(
		clamp(req.X, 0, req.Width), clamp(req.Y, 0, req.Height), req.Width, req.Height)
	dist, accuracy, score := game.ScoreGuess(guess, sess.Target)

	if err := d.store.InsertResult(r.Context(), daily.Result{
		Owner:        owner,
		Date:         date,
		Score:        score,
		MeanAccuracy: accuracy,
	}); err != nil {
		log.Warn().Err(err).Str("owner", owner).Str("date", date).Msg("insert daily result")
	}

	_ = json.NewEncoder(w).Encode(dailyGuessRes{
		Score:    score,
		Accuracy: accuracy,
		Distance: dist,
		Tier:     game.TierFor(score),
		Target:   viewOf(sess.Target),
		Guess:    viewOf(guess),
		Date:     date,
	})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// handleLeaderboard returns the top results for ?date= (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = d.targetNow()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Msg("daily leaderboard")
		rows = []daily.LBRow{}
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"date": date, "rows": rows})
}
