// internal/leaderboard/store.go
//
// SQLite-backed leaderboard persistence. One row per owner (a user ID or
// an anonymous cookie ID); the row's payload is the JSON array described
// in entry.go. Load never fails on bad data — a corrupt or missing row
// is an empty board — and Clear falls back to writing an empty payload
// if the delete itself is rejected, so the caller always observes a
// cleared board.

package leaderboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/huehunt/go-server/internal/colorspace"
)

// Store persists per-owner leaderboards in the leaderboards table.
type Store struct{ db *sql.DB }

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Load returns the owner's board, sorted as persisted. A missing row or
// unparseable payload yields an empty board with no error; only the
// database itself being unreachable surfaces as an error.
func (s *Store) Load(ctx context.Context, owner string) ([]Entry, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM leaderboards WHERE owner=?`, owner,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return []Entry{}, nil
	}
	if err != nil {
		return []Entry{}, err
	}
	return decodeEntries([]byte(payload)), nil
}

// Save overwrites the owner's board with at most MaxEntries entries.
// Entries are expected to be sorted descending by score already.
func (s *Store) Save(ctx context.Context, owner string, entries []Entry) error {
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leaderboards(owner, payload) VALUES(?,?)
		 ON CONFLICT(owner) DO UPDATE SET payload=excluded.payload`,
		owner, string(payload),
	)
	return err
}

// Record appends a finished game to the owner's board: load, insert,
// stable re-sort descending by score (ties keep insertion order), trim
// to MaxEntries, save. Reports whether the new entry took rank 1 — true
// only when it strictly beats the previous top score or the board was
// empty.
func (s *Store) Record(ctx context.Context, owner string, score, rounds int,
	meanDistance float64, presented, guessed []colorspace.Color) ([]Entry, bool, error) {

	entries, err := s.Load(ctx, owner)
	if err != nil {
		return nil, false, err
	}

	newTop := len(entries) == 0
	if !newTop {
		prevBest := entries[0].Score
		for _, e := range entries[1:] {
			if e.Score > prevBest {
				prevBest = e.Score
			}
		}
		newTop = score > prevBest
	}

	entries = append(entries, Entry{
		Score:           score,
		Date:            time.Now().UTC().Format(time.RFC3339),
		Rounds:          rounds,
		MeanDistance:    meanDistance,
		PresentedColors: colorStrings(presented),
		GuessedColors:   colorStrings(guessed),
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	if err := s.Save(ctx, owner, entries); err != nil {
		return nil, false, err
	}
	return entries, newTop, nil
}

// Clear erases the owner's board. Idempotent; if the delete fails it
// falls back to overwriting the row with an empty list so the board
// still reads as cleared.
func (s *Store) Clear(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM leaderboards WHERE owner=?`, owner); err != nil {
		return s.Save(ctx, owner, []Entry{})
	}
	return nil
}
