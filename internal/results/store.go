// internal/results/store.go
//
// SQLite persistence for finished games.
// Every game that reaches a terminal state is written once per round; wins
// feed the per-difficulty, per-day leaderboard.

package results

import (
	"context"
	"database/sql"
	"time"
)

// DefaultLimit caps leaderboard queries that do not specify one.
const DefaultLimit = 20

// Result is one finished round.
type Result struct {
	GameID     string `json:"gameId"`
	Round      int    `json:"round"`
	Difficulty string `json:"difficulty"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
	Mines      int    `json:"mines"`
	Won        bool   `json:"won"`
	ElapsedMs  int64  `json:"elapsedMs"`
	Date       string `json:"date"`
}

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records r. A second insert for the same (GameID, Round) is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	won := 0
	if r.Won {
		won = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO game_results
		    (game_id, round, difficulty, board_rows, board_cols, mines, won, elapsed_ms, date)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		r.GameID, r.Round, r.Difficulty, r.Rows, r.Columns, r.Mines, won, r.ElapsedMs, r.Date,
	)
	return err
}

type LBRow struct {
	GameID    string `json:"gameId"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Mines     int    `json:"mines"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard returns the fastest wins for a difficulty on a date.
func (s *Store) Leaderboard(ctx context.Context, difficulty, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, board_rows, board_cols, mines, elapsed_ms
		 FROM game_results
		 WHERE difficulty=? AND date=? AND won=1
		 ORDER BY elapsed_ms ASC, created_at ASC, id ASC
		 LIMIT ?`, difficulty, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.GameID, &r.Rows, &r.Columns, &r.Mines, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates every recorded round of one difficulty.
type Stats struct {
	Difficulty string `json:"difficulty"`
	Played     int    `json:"played"`
	Won        int    `json:"won"`
	BestMs     int64  `json:"bestMs,omitempty"`
}

func (s *Store) Stats(ctx context.Context, difficulty string) (Stats, error) {
	st := Stats{Difficulty: difficulty}
	var best sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
		        COALESCE(SUM(won), 0),
		        MIN(CASE WHEN won=1 THEN elapsed_ms END)
		 FROM game_results WHERE difficulty=?`, difficulty,
	).Scan(&st.Played, &st.Won, &best)
	if err != nil {
		return Stats{}, err
	}
	if best.Valid {
		st.BestMs = best.Int64
	}
	return st, nil
}
