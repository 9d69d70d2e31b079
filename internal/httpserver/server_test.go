package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/robalobadob/minesweeper/assets"
	"github.com/robalobadob/minesweeper/internal/config"
	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/metrics"
	"github.com/robalobadob/minesweeper/internal/results"
	"github.com/robalobadob/minesweeper/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Port:              "0",
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		CookieName:        "minesweeper_token",
		ClientOrigin:      "http://localhost:5173",
		DefaultDifficulty: "beginner",
		MaxRows:           64,
		MaxColumns:        64,
	}
}

func newResultsStore(t *testing.T) *results.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ddl, err := fs.ReadFile(assets.Migrations(), "001_results.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(ddl)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	return results.NewStore(db)
}

// testClock is a settable clock shared with handler goroutines.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// layouts hands out the given boards in order, then falls back to real generators.
func layouts(ls ...game.Layout) func(string) game.Generator {
	var mu sync.Mutex
	return func(seed string) game.Generator {
		mu.Lock()
		defer mu.Unlock()
		if len(ls) == 0 {
			return defaultGenerator(seed)
		}
		l := ls[0]
		ls = ls[1:]
		return l
	}
}

// newTestServer starts a server on a fake clock; gen == nil keeps real generators.
func newTestServer(t *testing.T, rs *results.Store, gen func(string) game.Generator) (*Server, *testClock, *httptest.Server) {
	t.Helper()
	srv := New(testConfig(), store.NewMemoryStore(), rs)
	clk := &testClock{t: time.Now()}
	srv.now = clk.Now
	if gen != nil {
		srv.newGenerator = gen
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, clk, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func newGame(t *testing.T, ts *httptest.Server, req boardReq) gameRes {
	t.Helper()
	var g gameRes
	if code := do(t, ts, http.MethodPost, "/game/new", "", req, &g); code != http.StatusOK {
		t.Fatalf("POST /game/new = %d", code)
	}
	if g.GameID == "" || g.Token == "" {
		t.Fatalf("new game response missing id or token: %+v", g)
	}
	return g
}

func reveal(t *testing.T, ts *httptest.Server, g gameRes, row, col int) revealRes {
	t.Helper()
	var out revealRes
	if code := do(t, ts, http.MethodPost, "/game/reveal", g.Token, cellReq{GameID: g.GameID, Row: row, Col: col}, &out); code != http.StatusOK {
		t.Fatalf("reveal (%d,%d) = %d", row, col, code)
	}
	return out
}

func flag(t *testing.T, ts *httptest.Server, g gameRes, row, col int) flagRes {
	t.Helper()
	var out flagRes
	if code := do(t, ts, http.MethodPost, "/game/flag", g.Token, cellReq{GameID: g.GameID, Row: row, Col: col}, &out); code != http.StatusOK {
		t.Fatalf("flag (%d,%d) = %d", row, col, code)
	}
	return out
}

func TestHealthAndPresets(t *testing.T) {
	_, _, ts := newTestServer(t, nil, nil)

	if code := do(t, ts, http.MethodGet, "/health", "", nil, nil); code != http.StatusOK {
		t.Fatalf("GET /health = %d", code)
	}
	var p struct {
		Default string      `json:"default"`
		Presets []presetRow `json:"presets"`
	}
	if code := do(t, ts, http.MethodGet, "/presets", "", nil, &p); code != http.StatusOK {
		t.Fatalf("GET /presets = %d", code)
	}
	if p.Default != "beginner" || len(p.Presets) != 3 || p.Presets[2].Name != "expert" || p.Presets[2].Mines != 99 {
		t.Fatalf("presets = %+v", p)
	}
	if code := do(t, ts, http.MethodGet, "/nope", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d; want 404", code)
	}
}

func TestNewGameDefaultsAndCookie(t *testing.T) {
	_, _, ts := newTestServer(t, nil, nil)

	res, err := http.Post(ts.URL+"/game/new", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /game/new: %v", err)
	}
	defer res.Body.Close()
	var g gameRes
	if err := json.NewDecoder(res.Body).Decode(&g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.Difficulty != "beginner" || g.Rows != 9 || g.Columns != 9 || g.Mines != 10 {
		t.Fatalf("default board = %+v", g)
	}
	if g.FlagsRemaining != 10 || g.Status != game.StatusActive {
		t.Fatalf("fresh game = %+v", g)
	}
	if len(g.SeedCommitment) != 64 {
		t.Fatalf("seed commitment = %q", g.SeedCommitment)
	}
	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "minesweeper_token" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != g.Token || !cookie.HttpOnly {
		t.Fatalf("token cookie = %+v", cookie)
	}
}

func TestNewGameRejectsBadBoards(t *testing.T) {
	_, _, ts := newTestServer(t, nil, nil)
	cases := []struct {
		name string
		req  boardReq
	}{
		{"unknown preset", boardReq{Difficulty: "nightmare"}},
		{"too many mines", boardReq{Rows: 2, Columns: 2, Mines: 4}},
		{"zero rows", boardReq{Rows: 0, Columns: 5, Mines: 1}},
		{"too large", boardReq{Rows: 65, Columns: 10, Mines: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := do(t, ts, http.MethodPost, "/game/new", "", tc.req, nil); code != http.StatusBadRequest {
				t.Fatalf("POST /game/new = %d; want 400", code)
			}
		})
	}
}

func TestNewGameRejectsMalformedJSON(t *testing.T) {
	_, _, ts := newTestServer(t, nil, nil)
	for _, body := range []string{`{"difficulty":"expert"`, `not json`} {
		res, err := http.Post(ts.URL+"/game/new", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST /game/new: %v", err)
		}
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&e)
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest || e.Error != "bad_json" {
			t.Fatalf("POST /game/new %q = %d %q; want 400 bad_json", body, res.StatusCode, e.Error)
		}
	}
}

func TestWinIsRecorded(t *testing.T) {
	rs := newResultsStore(t)
	_, _, ts := newTestServer(t, rs, layouts(game.Layout{{Row: 0, Col: 0}}))
	wonBefore := testutil.ToFloat64(metrics.GamesFinished.WithLabelValues("custom", "won"))

	g := newGame(t, ts, boardReq{Rows: 2, Columns: 2, Mines: 1})

	for _, p := range [][2]int{{1, 1}, {0, 1}, {1, 0}} {
		res := reveal(t, ts, g, p[0], p[1])
		if len(res.Opened) != 1 || res.Opened[0].Label != 1 {
			t.Fatalf("reveal %v opened %+v; want one cell labelled 1", p, res.Opened)
		}
		if res.Status != game.StatusActive {
			t.Fatalf("status after reveal %v = %s; want active (mine not flagged yet)", p, res.Status)
		}
	}

	fr := flag(t, ts, g, 0, 0)
	if !fr.Flagged || fr.FlagsRemaining != 0 || fr.Status != game.StatusWon {
		t.Fatalf("final flag = %+v; want won", fr)
	}

	var lb leaderboardRes
	if code := do(t, ts, http.MethodGet, "/leaderboard?difficulty=custom", "", nil, &lb); code != http.StatusOK {
		t.Fatalf("GET /leaderboard = %d", code)
	}
	if len(lb.Rows) != 1 || lb.Rows[0].GameID != g.GameID || lb.Rows[0].Mines != 1 {
		t.Fatalf("leaderboard = %+v", lb)
	}

	// A repeat command on the finished game must not record twice.
	if fr := flag(t, ts, g, 0, 0); fr.Applied {
		t.Fatalf("flag after win = %+v; want no-op", fr)
	}
	var st results.Stats
	do(t, ts, http.MethodGet, "/stats?difficulty=custom", "", nil, &st)
	if st.Played != 1 || st.Won != 1 {
		t.Fatalf("stats = %+v; want 1 played, 1 won", st)
	}
	if got := testutil.ToFloat64(metrics.GamesFinished.WithLabelValues("custom", "won")) - wonBefore; got != 1 {
		t.Fatalf("games_finished{custom,won} grew by %v; want 1", got)
	}
}

func TestLossSweepOverHTTP(t *testing.T) {
	rs := newResultsStore(t)
	_, _, ts := newTestServer(t, rs, layouts(game.Layout{{Row: 0, Col: 0}}))
	g := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})

	if fr := flag(t, ts, g, 2, 2); !fr.Flagged {
		t.Fatalf("flag = %+v", fr)
	}
	res := reveal(t, ts, g, 0, 0)
	if res.Status != game.StatusLost || !res.Applied {
		t.Fatalf("reveal mine = %+v; want lost", res)
	}
	marks := map[game.Mark]int{}
	for _, u := range res.Opened {
		marks[u.Mark]++
	}
	if marks[game.MarkExploded] != 1 || marks[game.MarkWrongFlag] != 1 {
		t.Fatalf("marks = %v; want one exploded, one wrong flag", marks)
	}

	if again := reveal(t, ts, g, 1, 1); again.Applied || again.Status != game.StatusLost {
		t.Fatalf("reveal after loss = %+v; want no-op", again)
	}

	var lb leaderboardRes
	do(t, ts, http.MethodGet, "/leaderboard?difficulty=custom", "", nil, &lb)
	if len(lb.Rows) != 0 {
		t.Fatalf("loss on leaderboard: %+v", lb.Rows)
	}
	var st results.Stats
	do(t, ts, http.MethodGet, "/stats?difficulty=custom", "", nil, &st)
	if st.Played != 1 || st.Won != 0 {
		t.Fatalf("stats = %+v; want 1 played, 0 won", st)
	}
}

func TestCommandsRequireGameToken(t *testing.T) {
	_, _, ts := newTestServer(t, nil, layouts(game.Layout{{Row: 0, Col: 0}}, game.Layout{{Row: 0, Col: 0}}))
	a := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})
	b := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})

	cmd := cellReq{GameID: a.GameID, Row: 1, Col: 1}
	cases := map[string]string{
		"no token":     "",
		"garbage":      "not-a-jwt",
		"another game": b.Token,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if code := do(t, ts, http.MethodPost, "/game/reveal", tok, cmd, nil); code != http.StatusUnauthorized {
				t.Fatalf("reveal = %d; want 401", code)
			}
			if code := do(t, ts, http.MethodGet, "/game/"+a.GameID, tok, nil, nil); code != http.StatusUnauthorized {
				t.Fatalf("snapshot = %d; want 401", code)
			}
		})
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	_, clk, ts := newTestServer(t, nil, layouts(game.Layout{{Row: 0, Col: 0}}))
	g := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})

	clk.Set(clk.Now().Add(2 * time.Hour))
	if code := do(t, ts, http.MethodPost, "/game/flag", g.Token, cellReq{GameID: g.GameID}, nil); code != http.StatusUnauthorized {
		t.Fatalf("flag with expired token = %d; want 401", code)
	}
}

func TestUnknownGameAndBadCell(t *testing.T) {
	srv, _, ts := newTestServer(t, nil, layouts(game.Layout{{Row: 0, Col: 0}}))
	g := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})

	if code := do(t, ts, http.MethodPost, "/game/reveal", g.Token, cellReq{GameID: g.GameID, Row: 9, Col: 0}, nil); code != http.StatusBadRequest {
		t.Fatalf("out of range reveal = %d; want 400", code)
	}
	if code := do(t, ts, http.MethodPost, "/game/flag", g.Token, cellReq{GameID: g.GameID, Row: 0, Col: -1}, nil); code != http.StatusBadRequest {
		t.Fatalf("out of range flag = %d; want 400", code)
	}

	_ = srv.store.Delete(context.Background(), g.GameID)
	if code := do(t, ts, http.MethodPost, "/game/reveal", g.Token, cellReq{GameID: g.GameID}, nil); code != http.StatusNotFound {
		t.Fatalf("reveal on evicted game = %d; want 404", code)
	}
}

func TestSnapshotAndElapsedCap(t *testing.T) {
	_, clk, ts := newTestServer(t, nil, layouts(game.Layout{{Row: 0, Col: 0}}))
	start := clk.Now()
	g := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})

	clk.Set(start.Add(42 * time.Second))
	reveal(t, ts, g, 2, 2)

	var snap snapshotRes
	if code := do(t, ts, http.MethodGet, "/game/"+g.GameID, g.Token, nil, &snap); code != http.StatusOK {
		t.Fatalf("GET /game/{id} = %d", code)
	}
	if snap.ElapsedSeconds != 42 || snap.Status != game.StatusActive {
		t.Fatalf("snapshot = elapsed %d status %s", snap.ElapsedSeconds, snap.Status)
	}
	if snap.Cells[0][0].Mine || snap.Cells[0][0].State != game.Hidden {
		t.Fatalf("snapshot leaked the hidden mine: %+v", snap.Cells[0][0])
	}
	if snap.OpenedCount != 8 {
		t.Fatalf("opened = %d; want 8", snap.OpenedCount)
	}

	clk.Set(start.Add(2 * time.Hour))
	do(t, ts, http.MethodGet, "/game/"+g.GameID, g.Token, nil, &snap)
	if snap.ElapsedSeconds != MaxDisplaySeconds {
		t.Fatalf("elapsed = %d; want cap %d", snap.ElapsedSeconds, MaxDisplaySeconds)
	}
}

func TestResetStartsNewRound(t *testing.T) {
	_, _, ts := newTestServer(t, nil, layouts(game.Layout{{Row: 0, Col: 0}}, game.Layout{{Row: 1, Col: 1}}))
	g := newGame(t, ts, boardReq{Rows: 3, Columns: 3, Mines: 1})
	reveal(t, ts, g, 0, 0) // lose

	var out gameRes
	if code := do(t, ts, http.MethodPost, "/game/reset", g.Token, resetReq{GameID: g.GameID}, &out); code != http.StatusOK {
		t.Fatalf("POST /game/reset = %d", code)
	}
	if out.Round != 1 || out.Status != game.StatusActive || out.Rows != 3 || out.FlagsRemaining != 1 {
		t.Fatalf("reset = %+v", out)
	}
	if res := reveal(t, ts, g, 0, 0); res.Status != game.StatusActive || len(res.Opened) != 1 {
		t.Fatalf("reveal (0,0) after reset = %+v; want a single safe cell", res)
	}

	if code := do(t, ts, http.MethodPost, "/game/reset", g.Token,
		resetReq{GameID: g.GameID, boardReq: boardReq{Difficulty: "intermediate"}}, &out); code != http.StatusOK {
		t.Fatalf("reset to intermediate = %d", code)
	}
	if out.Difficulty != "intermediate" || out.Rows != 16 || out.Round != 2 {
		t.Fatalf("reset to intermediate = %+v", out)
	}
}

func TestSeededBoardsStayOffLeaderboard(t *testing.T) {
	rs := newResultsStore(t)
	_, _, ts := newTestServer(t, rs, nil)
	g := newGame(t, ts, boardReq{Rows: 1, Columns: 2, Seed: "shared-board"})
	if g.SeedCommitment != game.Commit("shared-board") {
		t.Fatalf("commitment = %q", g.SeedCommitment)
	}

	res := reveal(t, ts, g, 0, 0)
	if res.Status != game.StatusWon {
		t.Fatalf("mine-free board not won: %+v", res)
	}
	if res.Seed != "shared-board" {
		t.Fatalf("seed disclosed as %q", res.Seed)
	}

	var st results.Stats
	do(t, ts, http.MethodGet, "/stats?difficulty=custom", "", nil, &st)
	if st.Played != 0 {
		t.Fatalf("seeded game recorded: %+v", st)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t, nil, nil)
	newGame(t, ts, boardReq{})

	res, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "minesweeper_games_started_total") {
		t.Fatalf("GET /metrics = %d\n%s", res.StatusCode, body)
	}
}

func TestDisplaySeconds(t *testing.T) {
	cases := map[time.Duration]int{
		-time.Second:             0,
		999 * time.Millisecond:   0,
		61500 * time.Millisecond: 61,
		999 * time.Second:        999,
		1000 * time.Second:       999,
	}
	for d, want := range cases {
		if got := DisplaySeconds(d); got != want {
			t.Errorf("DisplaySeconds(%v) = %d; want %d", d, got, want)
		}
	}
}
