// internal/store/memory.go
//
// In-memory registry of live minesweeper sessions.
// Sessions are ephemeral: a finished or abandoned game only survives as a
// row in the results table, never as board state.
//
// Characteristics:
//   - Stores *Game entries keyed by ID in a map guarded by an RWMutex.
//   - Each entry carries its own mutex; Update runs the callback under it so
//     commands against one game are serialized while other games proceed.
//   - Entries idle longer than a threshold are removed by Sweep / RunJanitor.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/game"
)

// ErrNotFound is returned for unknown or evicted game IDs.
var ErrNotFound = errors.New("game not found")

// Game is one hosted session plus the bookkeeping the engine leaves to its host.
type Game struct {
	ID         string
	Difficulty string
	Round      int // bumped on every reset; results are keyed by (ID, Round)
	Session    *game.Session
	Seeded     bool // board derived from a client-chosen seed
	StartedAt  time.Time
	FinishedAt time.Time // zero while the round is active
	Recorded   bool      // terminal outcome already handled for this round

	mu       sync.Mutex
	lastUsed time.Time
}

// Elapsed is the time spent in the current round, frozen once it ends.
func (g *Game) Elapsed(now time.Time) time.Duration {
	if g.StartedAt.IsZero() {
		return 0
	}
	if !g.FinishedAt.IsZero() {
		now = g.FinishedAt
	}
	return now.Sub(g.StartedAt)
}

// Restart begins a new round of the same game.
func (g *Game) Restart(now time.Time) {
	g.Round++
	g.StartedAt = now
	g.FinishedAt = time.Time{}
	g.Recorded = false
}

// Store defines the registry interface for live sessions.
type Store interface {
	// Save inserts g, assigning a fresh ID when g.ID is empty.
	Save(ctx context.Context, g *Game) error

	// Update runs fn with exclusive access to the game.
	// Returns ErrNotFound if id is unknown; otherwise fn's error.
	Update(ctx context.Context, id string, fn func(*Game) error) error

	// Delete drops a game. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Sweep evicts games untouched for longer than idle and reports how many.
	Sweep(idle time.Duration) int

	// Len reports the number of live games.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex     // guards games map
	games map[string]*Game // keyed by Game.ID
	now   func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*Game), now: time.Now}
}

func (m *memory) Save(ctx context.Context, g *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.lastUsed = m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memory) Update(ctx context.Context, id string, fn func(*Game) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	g, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastUsed = m.now()
	return fn(g)
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

// Sweep never waits on a game's mutex: a game busy in Update is in use, not idle.
func (m *memory) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.RLock()
	candidates := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		candidates = append(candidates, g)
	}
	m.mu.RUnlock()

	n := 0
	for _, g := range candidates {
		if !g.mu.TryLock() {
			continue
		}
		if g.lastUsed.Before(cutoff) {
			m.mu.Lock()
			if m.games[g.ID] == g {
				delete(m.games, g.ID)
				n++
			}
			m.mu.Unlock()
		}
		g.mu.Unlock()
	}
	return n
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// RunJanitor sweeps st every interval until ctx is done.
// onEvict, when non-nil, receives the number of sessions dropped by each sweep.
func RunJanitor(ctx context.Context, st Store, interval, idle time.Duration, onEvict func(int)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := st.Sweep(idle)
			if n == 0 {
				continue
			}
			log.Info().Int("evicted", n).Int("live", st.Len()).Msg("idle sessions swept")
			if onEvict != nil {
				onEvict(n)
			}
		}
	}
}
