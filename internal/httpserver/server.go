// internal/httpserver/server.go
//
// HTTP server wiring for the huehunt backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", GET /heatmap.png.
//   - Game endpoints (optional auth): POST /game/new, POST /game/guess,
//     GET /game/{id}.
//   - Leaderboard endpoints (optional auth): GET /leaderboard,
//     POST /leaderboard/clear.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me.
//   - JWT + cookie handling, anonymous session cookie, user CRUD helpers.
//   - Database persistence for finished games and user stats.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token
//     is present; routes can still run for guests.
//   - Require-auth middleware enforces presence and validity of a JWT.

package httpserver

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/huehunt/go-server/internal/colornames"
	"github.com/huehunt/go-server/internal/colorspace"
	"github.com/huehunt/go-server/internal/game"
	"github.com/huehunt/go-server/internal/heatmap"
	"github.com/huehunt/go-server/internal/leaderboard"
	"github.com/huehunt/go-server/internal/store"
)

// Server bundles router, in-memory session store, DB handle, and the
// heatmap renderer.
type Server struct {
	r      *chi.Mux
	store  store.Store
	db     *sql.DB
	boards *leaderboard.Store
	heat   *heatmap.Renderer
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB) *Server {
	capPx := heatmap.DefaultCap
	if v := os.Getenv("HEATMAP_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			capPx = n
		}
	}
	s := &Server{
		r:      chi.NewRouter(),
		store:  st,
		db:     db,
		boards: leaderboard.NewStore(db),
		heat:   heatmap.NewRenderer(capPx),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"huehunt-go","endpoints":["/health","POST /game/new","POST /game/guess","/heatmap.png","/leaderboard","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Heatmap raster — public, cacheable per size
	s.r.Get("/heatmap.png", s.handleHeatmap)

	// Game endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Post("/game/new", s.handleNewGame)
	s.r.With(s.withOptionalAuth()).Post("/game/guess", s.handleGuess)
	s.r.With(s.withOptionalAuth()).Get("/game/{id}", s.handleGameState)

	// Leaderboard — OPTIONAL AUTH (board is keyed by user or anon cookie)
	s.r.With(s.withOptionalAuth()).Get("/leaderboard", s.handleLeaderboard)
	s.r.With(s.withOptionalAuth()).Post("/leaderboard/clear", s.handleLeaderboardClear)

	// Daily Challenge — OPTIONAL AUTH (guests can play; result persisted on finish)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// Debug: color-name table size
	s.r.Get("/debug/colornames", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"names": colornames.Count()})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ HEATMAP ------------------------------------

// handleHeatmap renders the hue×saturation field as a PNG at the
// requested display size. Falls back to the coarse direct-fill path if
// the primary raster fails; zero-size requests are rejected, never
// rendered.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	height, _ := strconv.Atoi(r.URL.Query().Get("h"))
	if width <= 0 || height <= 0 {
		http.Error(w, `{"error":"bad_size"}`, http.StatusBadRequest)
		return
	}
	// Hard ceiling so a hostile query can't allocate unbounded buffers.
	if width > 4096 || height > 4096 {
		http.Error(w, `{"error":"too_large"}`, http.StatusBadRequest)
		return
	}

	img, err := s.heat.Render(width, height)
	if err != nil {
		log.Warn().Err(err).Int("w", width).Int("h", height).Msg("heatmap render, using fallback")
		img, err = s.heat.RenderFallback(width, height)
		if err != nil {
			http.Error(w, `{"error":"render_failed"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := png.Encode(w, img); err != nil {
		log.Warn().Err(err).Msg("encode heatmap png")
	}
}

// ------------------------------ GAME ---------------------------------------

// colorView is the wire form of a color: raw components plus the CSS
// string and the closest named color for display.
type colorView struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	CSS        string  `json:"css"`
	Name       string  `json:"name,omitempty"`
}

func viewOf(c colorspace.Color) colorView {
	r, g, b := c.RGB()
	name, _ := colornames.Nearest(r, g, b)
	return colorView{Hue: c.Hue, Saturation: c.Saturation, CSS: c.String(), Name: name}
}

// newGameRes is returned by POST /game/new.
type newGameRes struct {
	GameID    string    `json:"gameId"`
	Round     int       `json:"round"` // 1-based
	MaxRounds int       `json:"maxRounds"`
	Target    colorView `json:"target"`
}

// handleNewGame creates a new in-memory session with its first round
// started, and persists a DB "owner" row (either user_id or
// anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	sess := game.New()
	round, err := sess.StartRound()
	if err != nil {
		http.Error(w, `{"error":"start_failed"}`, http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		_, err := s.db.Exec(`INSERT INTO games (id, user_id, started_at, status, score)
		                     VALUES (?,?,?,?,0)`, sess.ID, me.ID, now, "playing")
		if err != nil {
			log.Warn().Err(err).Str("gameId", sess.ID).Msg("insert user game row")
		}
	} else {
		anon := s.ensureAnonID(w, r)
		_, err := s.db.Exec(`INSERT INTO games (id, anonymous_id, started_at, status, score)
		                     VALUES (?,?,?,?,0)`, sess.ID, anon, now, "playing")
		if err != nil {
			log.Warn().Err(err).Str("gameId", sess.ID).Msg("insert anon game row")
		}
	}

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:    sess.ID,
		Round:     sess.RoundNumber(),
		MaxRounds: game.MaxRounds,
		Target:    viewOf(round.Target),
	})
}

// guessReq/Res payloads for POST /game/guess. Coordinates are relative
// to the client's canvas of the given size and are clamped server-side.
type guessReq struct {
	GameID string  `json:"gameId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
type gameSummary struct {
	TotalScore   int                 `json:"totalScore"`
	MeanAccuracy float64             `json:"meanAccuracy"`
	NewHighScore bool                `json:"newHighScore"`
	Leaderboard  []leaderboard.Entry `json:"leaderboard"`
}
type guessRes struct {
	Score      int          `json:"score"`
	Accuracy   float64      `json:"accuracy"`
	Distance   float64      `json:"distance"`
	Tier       game.Tier    `json:"tier"`
	Target     colorView    `json:"target"`
	Guess      colorView    `json:"guess"`
	Round      int          `json:"round"` // round just resolved, 1-based
	MaxRounds  int          `json:"maxRounds"`
	TotalScore int          `json:"totalScore"`
	State      game.State   `json:"state"`
	NextTarget *colorView   `json:"nextTarget,omitempty"` // present unless game over
	Summary    *gameSummary `json:"summary,omitempty"`    // present when game over
}

// handleGuess applies one guess to a session, advances to the next round
// or finishes the game, and (on finish) records the leaderboard entry
// and updates user stats in a best-effort transaction.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		http.Error(w, `{"error":"bad_size"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	// Out-of-surface clicks are clamped, not rejected.
	x := clamp(req.X, 0, req.Width)
	y := clamp(req.Y, 0, req.Height)

	res, err := sess.SubmitGuess(x, y, req.Width, req.Height)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	out := guessRes{
		Score:      res.Score,
		Accuracy:   res.Accuracy,
		Distance:   res.Distance,
		Tier:       res.Tier,
		Target:     viewOf(res.Target),
		Guess:      viewOf(res.Guess),
		Round:      sess.RoundNumber(),
		MaxRounds:  game.MaxRounds,
		TotalScore: sess.TotalScore,
		State:      sess.State(),
	}

	owner := s.ownerID(w, r)
	if sess.State() == game.StateGameOver {
		out.Summary = s.finishGame(r.Context(), owner, sess)
	} else {
		next, err := sess.StartRound()
		if err != nil {
			http.Error(w, `{"error":"advance_failed"}`, http.StatusInternalServerError)
			return
		}
		nv := viewOf(next.Target)
		out.NextTarget = &nv
		out.State = sess.State()
	}

	if err := s.store.Save(r.Context(), sess); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	_ = json.NewEncoder(w).Encode(out)
}

// finishGame records the finished session: leaderboard entry, games row,
// user stat counters. Leaderboard recording is ordered before the reply
// so a restart cannot drop the result; DB counter updates are best
// effort.
func (s *Server) finishGame(ctx context.Context, owner string, sess *game.Session) *gameSummary {
	meanAcc := sess.MeanAccuracy()
	entries, newTop, err := s.boards.Record(ctx, owner,
		sess.TotalScore, game.MaxRounds, meanAcc, sess.Presented, sess.GuessedAll)
	if err != nil {
		// Degrade to an ephemeral board rather than failing the game.
		log.Warn().Err(err).Str("owner", owner).Msg("record leaderboard")
		entries, newTop = []leaderboard.Entry{}, false
	}

	me := ctxUser(ctx)
	ownerClause := `anonymous_id=?`
	if me != nil {
		ownerClause = `user_id=?`
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Msg("begin finish tx")
	} else {
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.Exec(`UPDATE games SET status='finished', finished_at=?, score=?, mean_accuracy=?
		                      WHERE id=? AND `+ownerClause,
			time.Now().UTC().Format(time.RFC3339), sess.TotalScore, meanAcc, sess.ID, owner); err != nil {
			log.Warn().Err(err).Msg("finish game row")
		}
		if me != nil {
			if err := s.bumpStats(tx, me.ID, sess.TotalScore); err != nil {
				log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			}
		}
		_ = tx.Commit()
	}

	return &gameSummary{
		TotalScore:   sess.TotalScore,
		MeanAccuracy: meanAcc,
		NewHighScore: newTop,
		Leaderboard:  entries,
	}
}

// gameStateRes is returned by GET /game/{id}.
type gameStateRes struct {
	GameID     string     `json:"gameId"`
	Round      int        `json:"round"`
	MaxRounds  int        `json:"maxRounds"`
	TotalScore int        `json:"totalScore"`
	State      game.State `json:"state"`
	Target     *colorView `json:"target,omitempty"` // current unresolved target
}

// handleGameState returns a snapshot of an active session.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	out := gameStateRes{
		GameID:     sess.ID,
		Round:      sess.RoundNumber(),
		MaxRounds:  game.MaxRounds,
		TotalScore: sess.TotalScore,
		State:      sess.State(),
	}
	if sess.State() == game.StateRoundActive {
		tv := viewOf(sess.Rounds[len(sess.Rounds)-1].Target)
		out.Target = &tv
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ---------------------------- LEADERBOARD ----------------------------------

// handleLeaderboard returns the caller's top-10 board.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerID(w, r)
	entries, err := s.boards.Load(r.Context(), owner)
	if err != nil {
		// Storage trouble degrades to an empty board, never an error page.
		log.Warn().Err(err).Str("owner", owner).Msg("load leaderboard")
		entries = []leaderboard.Entry{}
	}
	_ = json.NewEncoder(w).Encode(entries)
}

// handleLeaderboardClear erases the caller's board. Always reports
// cleared to the client.
func (s *Server) handleLeaderboardClear(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerID(w, r)
	if err := s.boards.Clear(r.Context(), owner); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("clear leaderboard")
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// ownerID resolves the leaderboard/stats owner: the authenticated user
// ID when logged in, otherwise the anonymous cookie ID.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// ctxUser fetches the authenticated user from a context, or nil.
func ctxUser(ctx context.Context) *authUser {
	me, _ := ctx.Value(ctxUserKey{}).(*authUser)
	return me
}

// clamp bounds v into [lo,hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ------------------------------- AUTH --------------------------------------

// Request payloads for signup/login.
type signupReq struct{ Username, Password string }
type loginReq struct{ Username, Password string }

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// mountAuthRoutes registers authentication + gated routes (/auth/*, /stats/me).
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	// Current user (gated)
	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		me := ctxUser(r.Context())
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(me)
	})

	// Stats (gated)
	s.r.With(s.requireAuth()).Get("/stats/me", func(w http.ResponseWriter, r *http.Request) {
		me := ctxUser(r.Context())
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		u, err := s.findUserByID(me.ID)
		if err != nil {
			http.Error(w, `{"error":"not_found"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          u.ID,
			"gamesPlayed": u.GamesPlayed,
			"bestScore":   u.BestScore,
			"totalScore":  u.TotalScore,
		})
	})

	// Recent games (gated)
	s.r.With(s.requireAuth()).Get("/games/mine", func(w http.ResponseWriter, r *http.Request) {
		me := ctxUser(r.Context())
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		rows, err := s.db.Query(`SELECT id, status, score, mean_accuracy, started_at, COALESCE(finished_at,'')
		                         FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT 50`, me.ID)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		type gameRow struct {
			ID           string  `json:"id"`
			Status       string  `json:"status"`
			Score        int     `json:"score"`
			MeanAccuracy float64 `json:"meanAccuracy"`
			StartedAt    string  `json:"startedAt"`
			FinishedAt   string  `json:"finishedAt,omitempty"`
		}
		out := []gameRow{}
		for rows.Next() {
			var gr gameRow
			if err := rows.Scan(&gr.ID, &gr.Status, &gr.Score, &gr.MeanAccuracy, &gr.StartedAt, &gr.FinishedAt); err == nil {
				out = append(out, gr)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

// handleSignup creates a new user, signs a JWT, sets auth cookie, and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.createUser(body.Username, body.Password)
	if err != nil {
		if err.Error() == "username taken" {
			http.Error(w, `{"error":"Username taken"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	// Attach any anonymous games + board to the new account
	s.claimAnonHistory(s.ensureAnonID(w, r), u.ID)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates user, sets cookie, and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.findUserByUsername(strings.TrimSpace(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	s.claimAnonHistory(s.ensureAnonID(w, r), u.ID)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// --------------------------- optional auth ---------------------------------

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearerOrCookie(r); tok != "" {
				claims := jwt.MapClaims{}
				if t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
					return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
				}); err == nil && t.Valid {
					if id, _ := claims["id"].(string); id != "" {
						if u, err := s.findUserByID(id); err == nil {
							ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: u.ID, Username: u.Username})
							r = r.WithContext(ctx)
						}
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

const anonCookieName = "huehunt_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
// Used to associate guest games and boards with a stable identifier.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := genID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   os.Getenv("NODE_ENV") == "production",
		SameSite: func() http.SameSite {
			if os.Getenv("NODE_ENV") == "production" {
				return http.SameSiteNoneMode
			}
			return http.SameSiteLaxMode
		}(),
		Expires: time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// claimAnonHistory transfers anonymous games and, if the user has no
// board yet, the anonymous leaderboard to a user account after auth.
func (s *Server) claimAnonHistory(anonID, userID string) {
	if anonID == "" || userID == "" {
		return
	}
	if _, err := s.db.Exec(`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon games")
	}
	if _, err := s.db.Exec(`UPDATE OR IGNORE leaderboards SET owner=? WHERE owner=?`, userID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon leaderboard")
	}
}

// ------------------------ auth helpers & users -----------------------------

// userRow matches the users table shape.
type userRow struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	GamesPlayed  int
	BestScore    int
	TotalScore   int
}

// createUser validates input, checks uniqueness, hashes password, and inserts a new user.
func (s *Server) createUser(username, pw string) (*userRow, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRow(`SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errors.New("username taken")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	id := genID()
	if _, err := s.db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, username, string(h), now); err != nil {
		return nil, err
	}
	return &userRow{ID: id, Username: username, PasswordHash: string(h), CreatedAt: mustParse(now)}, nil
}

// findUserByUsername/ID load a user row or return an error if missing.
func (s *Server) findUserByUsername(username string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at, games_played, best_score, total_score
	                      FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}
func (s *Server) findUserByID(id string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at, games_played, best_score, total_score
	                      FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.BestScore, &u.TotalScore); err != nil {
		return nil, err
	}
	u.CreatedAt = mustParse(created)
	return &u, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// normalizeUsername trims whitespace; adjust here if you want stricter rules.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8–100 chars")
	}
	return nil
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

// bumpStats increments games played and score totals; tracks the best
// finished-game score (within tx).
func (s *Server) bumpStats(tx *sql.Tx, userID string, score int) error {
	var gp, best, total int
	row := tx.QueryRow(`SELECT games_played, best_score, total_score FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &best, &total); err != nil {
		return err
	}
	gp++
	total += score
	if score > best {
		best = score
	}
	_, err := tx.Exec(`UPDATE users SET games_played=?, best_score=?, total_score=? WHERE id=?`, gp, best, total, userID)
	return err
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username and a configurable expiry (JWT_EXPIRES_DAYS; default 14).
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev_secret_change_me"
	}
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	name := getEnv("COOKIE_NAME", "huehunt_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	name := getEnv("COOKIE_NAME", "huehunt_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "huehunt_token")); err == nil {
		return c.Value
	}
	return ""
}

// ---------------------------- auth middleware ------------------------------

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// requireAuth enforces a valid JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			id, _ := claims["id"].(string)
			username, _ := claims["username"].(string)
			if id == "" || username == "" {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			// Ensure user still exists
			if _, err := s.findUserByID(id); err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: id, Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
