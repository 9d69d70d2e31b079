// internal/httpserver/game.go
//
// Game endpoints. Each handler resolves the game, checks its token, and runs
// the engine command inside store.Update so the session sees one command at a
// time. Terminal transitions are recorded exactly once per round.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/metrics"
	"github.com/robalobadob/minesweeper/internal/presets"
	"github.com/robalobadob/minesweeper/internal/results"
	"github.com/robalobadob/minesweeper/internal/store"
)

// MaxDisplaySeconds caps the elapsed-time counter shown to players.
const MaxDisplaySeconds = 999

var (
	errUnknownDifficulty = errors.New("unknown difficulty")
	errBoardTooLarge     = errors.New("board too large")
)

// DisplaySeconds converts an elapsed duration to the capped whole-second counter.
func DisplaySeconds(d time.Duration) int {
	sec := int(d / time.Second)
	if sec < 0 {
		return 0
	}
	return min(sec, MaxDisplaySeconds)
}

// mountGame registers the command routes. GET /game/{id}/events is mounted in
// New, outside the timeout group, and shares the /game/{id} prefix.
func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/reveal", s.handleReveal)
	r.Post("/game/flag", s.handleFlag)
	r.Post("/game/reset", s.handleReset)
	r.Get("/game/{id}", s.handleSnapshot)
}

// boardReq selects a board: a preset name, or explicit dimensions.
// Explicit dimensions win when any of them is set.
type boardReq struct {
	Difficulty string `json:"difficulty"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
	Mines      int    `json:"mines"`
	Seed       string `json:"seed"` // optional; fixes the layout (testing, shared boards)
}

func (b boardReq) custom() bool { return b.Rows != 0 || b.Columns != 0 || b.Mines != 0 }

// resolve maps a request to a difficulty label and validated settings.
func (s *Server) resolve(b boardReq) (string, game.Settings, error) {
	if b.custom() {
		st := game.Settings{Rows: b.Rows, Columns: b.Columns, Mines: b.Mines}
		if err := st.Validate(); err != nil {
			return "", game.Settings{}, err
		}
		if st.Rows > s.cfg.MaxRows || st.Columns > s.cfg.MaxColumns {
			return "", game.Settings{}, fmt.Errorf("%w: max %dx%d", errBoardTooLarge, s.cfg.MaxRows, s.cfg.MaxColumns)
		}
		return presets.Custom, st, nil
	}
	name := b.Difficulty
	if name == "" {
		name = s.cfg.DefaultDifficulty
	}
	st, ok := presets.Lookup(name)
	if !ok {
		return "", game.Settings{}, fmt.Errorf("%w: %q", errUnknownDifficulty, name)
	}
	return strings.ToLower(strings.TrimSpace(name)), st, nil
}

// gameRes is returned by /game/new and /game/reset.
type gameRes struct {
	GameID         string      `json:"gameId"`
	Token          string      `json:"token,omitempty"`
	Difficulty     string      `json:"difficulty"`
	Round          int         `json:"round"`
	Rows           int         `json:"rows"`
	Columns        int         `json:"columns"`
	Mines          int         `json:"mines"`
	FlagsRemaining int         `json:"flagsRemaining"`
	Status         game.Status `json:"status"`
	SeedCommitment string      `json:"seedCommitment,omitempty"`
}

func newGameRes(g *store.Game) gameRes {
	st := g.Session.Settings()
	return gameRes{
		GameID:         g.ID,
		Difficulty:     g.Difficulty,
		Round:          g.Round,
		Rows:           st.Rows,
		Columns:        st.Columns,
		Mines:          st.Mines,
		FlagsRemaining: g.Session.FlagsRemaining(),
		Status:         g.Session.Status(),
		SeedCommitment: g.Session.SeedCommitment(),
	}
}

// handleNewGame creates a session, stores it, and hands out its token.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req boardReq
	// An empty body selects the default difficulty.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	difficulty, st, err := s.resolve(req)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	sess, err := game.NewGame(st.Rows, st.Columns, st.Mines, game.WithGenerator(s.newGenerator(req.Seed)))
	if err != nil {
		writeBoardError(w, err)
		return
	}

	g := &store.Game{
		Difficulty: difficulty,
		Session:    sess,
		Seeded:     req.Seed != "",
		StartedAt:  s.now(),
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.signToken(g.ID)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setTokenCookie(w, tok, exp)

	metrics.GamesStarted.WithLabelValues(difficulty).Inc()
	metrics.LiveSessions.Set(float64(s.store.Len()))
	log.Info().Str("gameId", g.ID).Str("difficulty", difficulty).
		Int("rows", st.Rows).Int("columns", st.Columns).Int("mines", st.Mines).
		Bool("seeded", g.Seeded).Msg("game started")

	res := newGameRes(g)
	res.Token = tok
	writeJSON(w, http.StatusOK, res)
}

// cellReq is the payload for /game/reveal and /game/flag.
type cellReq struct {
	GameID string `json:"gameId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type revealRes struct {
	Opened         []game.CellUpdate `json:"opened"`
	Status         game.Status       `json:"status"`
	Applied        bool              `json:"applied"`
	FlagsRemaining int               `json:"flagsRemaining"`
	ElapsedSeconds int               `json:"elapsedSeconds"`
	Seed           string            `json:"seed,omitempty"` // disclosed once the round is over
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCellReq(w, r)
	if !ok {
		return
	}
	var out revealRes
	err := s.store.Update(r.Context(), req.GameID, func(g *store.Game) error {
		res, err := g.Session.Reveal(req.Row, req.Col)
		if err != nil {
			return err
		}
		metrics.Commands.WithLabelValues("reveal", strconv.FormatBool(res.Applied)).Inc()
		metrics.CellsOpened.Add(float64(len(res.Opened)))
		s.finish(r.Context(), g)

		out = revealRes{
			Opened:         res.Opened,
			Status:         res.Outcome,
			Applied:        res.Applied,
			FlagsRemaining: g.Session.FlagsRemaining(),
			ElapsedSeconds: DisplaySeconds(g.Elapsed(s.now())),
			Seed:           g.Session.Seed(),
		}
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	if out.Opened == nil {
		out.Opened = []game.CellUpdate{}
	}
	writeJSON(w, http.StatusOK, out)
}

type flagRes struct {
	Flagged        bool        `json:"flagged"`
	FlagsRemaining int         `json:"flagsRemaining"`
	Status         game.Status `json:"status"`
	Applied        bool        `json:"applied"`
	Seed           string      `json:"seed,omitempty"`
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCellReq(w, r)
	if !ok {
		return
	}
	var out flagRes
	err := s.store.Update(r.Context(), req.GameID, func(g *store.Game) error {
		res, err := g.Session.ToggleFlag(req.Row, req.Col)
		if err != nil {
			return err
		}
		metrics.Commands.WithLabelValues("flag", strconv.FormatBool(res.Applied)).Inc()
		s.finish(r.Context(), g)

		out = flagRes{
			Flagged:        res.Flagged,
			FlagsRemaining: res.FlagsRemaining,
			Status:         res.Outcome,
			Applied:        res.Applied,
			Seed:           g.Session.Seed(),
		}
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// resetReq restarts a game, optionally on a different board.
// With no difficulty and no dimensions the current board size is kept.
type resetReq struct {
	GameID string `json:"gameId"`
	boardReq
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if err := s.authorize(r, req.GameID); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var out gameRes
	err := s.store.Update(r.Context(), req.GameID, func(g *store.Game) error {
		difficulty, st := g.Difficulty, g.Session.Settings()
		if req.custom() || req.Difficulty != "" {
			var err error
			if difficulty, st, err = s.resolve(req.boardReq); err != nil {
				return err
			}
		}
		// A fresh generator per round keeps a disclosed seed from predicting the next board.
		if err := g.Session.Reset(st, game.WithGenerator(s.newGenerator(req.Seed))); err != nil {
			return err
		}
		g.Difficulty = difficulty
		g.Seeded = req.Seed != ""
		g.Restart(s.now())

		metrics.GamesStarted.WithLabelValues(difficulty).Inc()
		log.Info().Str("gameId", g.ID).Int("round", g.Round).Str("difficulty", difficulty).Msg("game reset")
		out = newGameRes(g)
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type snapshotRes struct {
	game.Snapshot
	GameID         string `json:"gameId"`
	Difficulty     string `json:"difficulty"`
	Round          int    `json:"round"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	SeedCommitment string `json:"seedCommitment,omitempty"`
	Seed           string `json:"seed,omitempty"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.authorize(r, id); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var out snapshotRes
	err := s.store.Update(r.Context(), id, func(g *store.Game) error {
		out = snapshotRes{
			Snapshot:       g.Session.Snapshot(),
			GameID:         g.ID,
			Difficulty:     g.Difficulty,
			Round:          g.Round,
			ElapsedSeconds: DisplaySeconds(g.Elapsed(s.now())),
			SeedCommitment: g.Session.SeedCommitment(),
			Seed:           g.Session.Seed(),
		}
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// finish records a round's terminal outcome the first time it is observed.
// Must run inside store.Update.
func (s *Server) finish(ctx context.Context, g *store.Game) {
	if !g.Session.IsTerminal() || g.Recorded {
		return
	}
	now := s.now()
	g.Recorded = true
	g.FinishedAt = now
	elapsed := g.Elapsed(now)
	outcome := string(g.Session.Status())

	metrics.GamesFinished.WithLabelValues(g.Difficulty, outcome).Inc()
	metrics.GameDuration.WithLabelValues(g.Difficulty, outcome).Observe(elapsed.Seconds())
	ev := log.Info().Str("gameId", g.ID).Int("round", g.Round).Str("difficulty", g.Difficulty).
		Dur("elapsed", elapsed)
	if c := g.Session.Cause(); c != nil {
		ev = ev.Stringer("cause", c)
	}
	ev.Msg("game " + outcome)

	// Seeded boards are reproducible by the client, so they stay off the leaderboard.
	if s.results == nil || g.Seeded {
		return
	}
	st := g.Session.Settings()
	err := s.results.Insert(ctx, results.Result{
		GameID:     g.ID,
		Round:      g.Round,
		Difficulty: g.Difficulty,
		Rows:       st.Rows,
		Columns:    st.Columns,
		Mines:      st.Mines,
		Won:        g.Session.Status() == game.StatusWon,
		ElapsedMs:  elapsed.Milliseconds(),
		Date:       results.DateKey(now),
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("record result")
	}
}

// decodeCellReq parses a cell command and checks its token.
func (s *Server) decodeCellReq(w http.ResponseWriter, r *http.Request) (cellReq, bool) {
	var req cellReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return req, false
	}
	if err := s.authorize(r, req.GameID); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return req, false
	}
	return req, true
}

// writeBoardError maps settings errors to 400s.
func writeBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownDifficulty):
		writeError(w, http.StatusBadRequest, "unknown_difficulty")
	case errors.Is(err, errBoardTooLarge):
		writeError(w, http.StatusBadRequest, "board_too_large")
	case errors.Is(err, game.ErrTooManyMines):
		writeError(w, http.StatusBadRequest, "too_many_mines")
	case errors.Is(err, game.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, "invalid_settings")
	default:
		log.Error().Err(err).Msg("create board")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

// writeCommandError maps store and engine errors to HTTP statuses.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrOutOfBounds):
		writeError(w, http.StatusBadRequest, "out_of_bounds")
	default:
		writeBoardError(w, err)
	}
}
