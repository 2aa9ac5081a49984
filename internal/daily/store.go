// internal/daily/store.go
//
// Persistence for Daily Challenge results: one row per player per date
// (UNIQUE(owner, date)), plus the per-date leaderboard query.

package daily

import (
	"context"
	"database/sql"
)

// Result is a single player's finished daily run.
type Result struct {
	Owner        string  `json:"owner"`
	Date         string  `json:"date"`
	Score        int     `json:"score"`
	MeanAccuracy float64 `json:"meanAccuracy"`
}

// Store wraps the daily_results table.
type Store struct{ db *sql.DB }

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the owner has a persisted result for the
// given date.
func (s *Store) AlreadyPlayed(ctx context.Context, owner, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE owner=? AND date=?`,
		owner, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a finished daily run. Respects UNIQUE(owner,
// date); a duplicate insert is silently ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(owner, date, score, mean_accuracy)
		 VALUES(?,?,?,?)`, r.Owner, r.Date, r.Score, r.MeanAccuracy,
	)
	return err
}

// LBRow is one leaderboard line for a date.
type LBRow struct {
	Owner        string  `json:"owner"`
	Score        int     `json:"score"`
	MeanAccuracy float64 `json:"meanAccuracy"`
}

// Leaderboard fetches the top results for a date, best score first,
// earlier submission breaking ties.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner, score, mean_accuracy
		 FROM daily_results
		 WHERE date=?
		 ORDER BY score DESC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LBRow
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.Owner, &r.Score, &r.MeanAccuracy); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
