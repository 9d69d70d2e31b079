// internal/httpserver/routes_results.go
//
// Read-only routes over presets and recorded results:
//   - GET /presets     → difficulty presets in display order + the default
//   - GET /leaderboard → fastest wins for a difficulty on a date (today by default)
//   - GET /stats       → played / won / best time for a difficulty
//
// Results are written by finish() in game.go; these routes only read them.

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/presets"
	"github.com/robalobadob/minesweeper/internal/results"
)

// maxLeaderboard bounds ?limit= on /leaderboard.
const maxLeaderboard = 100

func (s *Server) mountResults(r chi.Router) {
	r.Get("/presets", s.handlePresets)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/stats", s.handleStats)
}

type presetRow struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Mines   int    `json:"mines"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	names := presets.Names()
	out := make([]presetRow, 0, len(names))
	for _, n := range names {
		st, _ := presets.Lookup(n)
		out = append(out, presetRow{Name: n, Rows: st.Rows, Columns: st.Columns, Mines: st.Mines})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.cfg.DefaultDifficulty,
		"presets": out,
	})
}

type leaderboardRes struct {
	Difficulty string          `json:"difficulty"`
	Date       string          `json:"date"`
	Rows       []results.LBRow `json:"rows"`
}

// handleLeaderboard returns the top wins; without a results store it is always empty.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := leaderboardRes{
		Difficulty: q.Get("difficulty"),
		Date:       q.Get("date"),
		Rows:       []results.LBRow{},
	}
	if res.Difficulty == "" {
		res.Difficulty = s.cfg.DefaultDifficulty
	}
	if res.Date == "" {
		res.Date = results.DateKey(s.now())
	}
	limit := results.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_limit")
			return
		}
		limit = min(n, maxLeaderboard)
	}

	if s.results != nil {
		rows, err := s.results.Leaderboard(r.Context(), res.Difficulty, res.Date, limit)
		if err != nil {
			log.Error().Err(err).Msg("leaderboard")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		res.Rows = rows
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		difficulty = s.cfg.DefaultDifficulty
	}
	if s.results == nil {
		writeJSON(w, http.StatusOK, results.Stats{Difficulty: difficulty})
		return
	}
	st, err := s.results.Stats(r.Context(), difficulty)
	if err != nil {
		log.Error().Err(err).Msg("stats")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
