// internal/game/session.go
//
// Game session: the command API consumed by the view layer.
// Responsibilities:
//   - Own exactly one Board and regenerate it on Reset.
//   - Apply Reveal / ToggleFlag commands and keep flag and opened-cell counters.
//   - Track state transitions: active → won | lost (both terminal until Reset).
//   - Notify listeners of every cell change and terminal transition.
//
// Notes:
//   - The session performs no locking. Hosts must serialize commands.
//   - The session is time-oblivious; elapsed time belongs to the host.
//   - Winning requires BOTH opening every safe cell AND flagging every mine.
//     Opening all safe cells with a mine left unflagged keeps the game active.

package game

import "fmt"

// Option configures a Session at construction.
type Option func(*Session)

// WithGenerator replaces the default crypto-seeded RandomGenerator.
func WithGenerator(g Generator) Option {
	return func(s *Session) { s.gen = g }
}

// WithListener subscribes l for the lifetime of the session.
// Reset ignores it; use Subscribe to add listeners to a running session.
func WithListener(l Listener) Option {
	return func(s *Session) { s.Subscribe(l) }
}

// Session is a single-player game.
type Session struct {
	settings     Settings
	board        *Board
	gen          Generator
	flagsPlaced  int
	minesFlagged int
	openedCount  int
	status       Status
	cause        *Position

	listeners map[int]Listener
	nextSub   int
}

// NewGame starts an active game on a rows × columns board with mines mines.
// It fails with ErrInvalidSettings or ErrTooManyMines on impossible boards.
func NewGame(rows, columns, mines int, opts ...Option) (*Session, error) {
	s := &Session{listeners: make(map[int]Listener)}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		s.gen = NewRandomGenerator()
	}
	if err := s.reset(Settings{Rows: rows, Columns: columns, Mines: mines}); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) (cancel func()) {
	if s.listeners == nil {
		s.listeners = make(map[int]Listener)
	}
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() { delete(s.listeners, id) }
}

// Reset regenerates mines and starts over with the given settings.
// It is accepted in every state. On error the session is left untouched,
// including its generator; on success WithGenerator replaces the generator for
// this and later rounds.
func (s *Session) Reset(settings Settings, opts ...Option) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	scratch := &Session{}
	for _, opt := range opts {
		opt(scratch)
	}
	prev := s.gen
	if scratch.gen != nil {
		s.gen = scratch.gen
	}
	if err := s.reset(settings); err != nil {
		s.gen = prev
		return err
	}
	s.emit(Event{Kind: EventGameReset})
	return nil
}

func (s *Session) reset(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	mines := s.gen.Generate(settings.Mines, settings.Rows, settings.Columns)
	if err := checkLayout(settings, mines); err != nil {
		return err
	}
	if s.board == nil {
		s.board = &Board{}
	}
	s.board.Initialize(settings.Rows, settings.Columns, mines)
	s.settings = settings
	s.flagsPlaced, s.minesFlagged, s.openedCount = 0, 0, 0
	s.status = StatusActive
	s.cause = nil
	return nil
}

// checkLayout guards against generators that return the wrong number of
// positions, duplicates, or positions off the board.
func checkLayout(st Settings, mines []Position) error {
	if len(mines) != st.Mines {
		return fmt.Errorf("%w: got %d positions, want %d", ErrInvalidLayout, len(mines), st.Mines)
	}
	seen := make(map[Position]struct{}, len(mines))
	for _, p := range mines {
		if p.Row < 0 || p.Row >= st.Rows || p.Col < 0 || p.Col >= st.Columns {
			return fmt.Errorf("%w: %v outside %dx%d", ErrInvalidLayout, p, st.Rows, st.Columns)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: duplicate %v", ErrInvalidLayout, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Reveal uncovers (row, col).
//
// No-op (Applied == false) when:
//   - the game is not active,
//   - the target is flagged or already opened.
//
// State transitions:
//   - Target holds a mine → it is opened as the exploded cell, status becomes
//     lost and the whole board is swept open for display.
//   - Otherwise the connected region is flood-filled and the win condition is checked.
func (s *Session) Reveal(row, col int) (RevealResult, error) {
	if !s.board.InBounds(row, col) {
		return RevealResult{Outcome: s.status}, fmt.Errorf("reveal %v: %w", Position{row, col}, ErrOutOfBounds)
	}
	res := RevealResult{Outcome: s.status}
	if s.status != StatusActive {
		return res, nil
	}
	cell := s.board.at(Position{Row: row, Col: col})
	if cell.State != Hidden {
		return res, nil
	}

	if cell.HasMine {
		res.Opened = s.explode(Position{Row: row, Col: col})
	} else {
		res.Opened = FloodFill(s.board, row, col)
		s.openedCount += len(res.Opened)
		for i := range res.Opened {
			s.emitCell(EventCellOpened, res.Opened[i])
		}
		s.checkWin()
	}
	res.Applied = true
	res.Outcome = s.status
	return res, nil
}

// explode handles a mine hit: the cause is opened, the game is lost, and every
// remaining cell is swept for end-of-game display.
//   - unflagged mines are opened and marked as mines,
//   - flagged mines stay flagged,
//   - flagged safe cells are marked as wrong flags,
//   - every other hidden cell is opened through the flood fill.
func (s *Session) explode(p Position) []CellUpdate {
	cause := s.board.at(p)
	cause.State = Opened
	cause.Mark = MarkExploded
	s.openedCount++
	s.cause = &p
	s.status = StatusLost

	updates := []CellUpdate{cause.view(p)}
	for r := 0; r < s.settings.Rows; r++ {
		for c := 0; c < s.settings.Columns; c++ {
			pos := Position{Row: r, Col: c}
			cell := s.board.at(pos)
			switch {
			case cell.State == Opened:
			case cell.HasMine:
				if cell.State == Hidden {
					cell.State = Opened
					cell.Mark = MarkMine
					s.openedCount++
					updates = append(updates, cell.view(pos))
				}
			case cell.State == Flagged:
				cell.Mark = MarkWrongFlag
				updates = append(updates, cell.view(pos))
			default:
				opened := FloodFill(s.board, r, c)
				s.openedCount += len(opened)
				updates = append(updates, opened...)
			}
		}
	}

	for _, u := range updates {
		kind := EventCellOpened
		if u.Mark == MarkWrongFlag {
			kind = EventCellMarked
		}
		s.emitCell(kind, u)
	}
	s.emit(Event{Kind: EventGameLost})
	return updates
}

// ToggleFlag flags a hidden cell or unflags a flagged one.
//
// No-op (Applied == false) when:
//   - the game is not active,
//   - the target is opened,
//   - the target is hidden and every available flag is already placed.
func (s *Session) ToggleFlag(row, col int) (FlagResult, error) {
	if !s.board.InBounds(row, col) {
		return FlagResult{Outcome: s.status, FlagsRemaining: s.FlagsRemaining()},
			fmt.Errorf("toggle flag %v: %w", Position{row, col}, ErrOutOfBounds)
	}
	pos := Position{Row: row, Col: col}
	cell := s.board.at(pos)
	res := FlagResult{
		Flagged:        cell.State == Flagged,
		FlagsRemaining: s.FlagsRemaining(),
		Outcome:        s.status,
	}
	if s.status != StatusActive {
		return res, nil
	}

	switch cell.State {
	case Opened:
		return res, nil
	case Flagged:
		cell.State = Hidden
		s.flagsPlaced--
		if cell.HasMine {
			s.minesFlagged--
		}
		s.emitCell(EventCellUnflagged, cell.view(pos))
	case Hidden:
		if s.flagsPlaced >= s.settings.Mines {
			return res, nil
		}
		cell.State = Flagged
		s.flagsPlaced++
		if cell.HasMine {
			s.minesFlagged++
		}
		s.emitCell(EventCellFlagged, cell.view(pos))
	}
	s.checkWin()

	res.Flagged = cell.State == Flagged
	res.FlagsRemaining = s.FlagsRemaining()
	res.Outcome = s.status
	res.Applied = true
	return res, nil
}

// checkWin transitions to won once every mine is flagged and every safe cell opened.
func (s *Session) checkWin() {
	if s.status != StatusActive {
		return
	}
	if s.minesFlagged == s.settings.Mines && s.openedCount == s.settings.SafeCells() {
		s.status = StatusWon
		s.emit(Event{Kind: EventGameWon})
	}
}

func (s *Session) emitCell(kind EventKind, u CellUpdate) {
	s.emit(Event{Kind: kind, Cell: &u})
}

func (s *Session) emit(ev Event) {
	if len(s.listeners) == 0 {
		return
	}
	ev.Status = s.status
	ev.FlagsRemaining = s.FlagsRemaining()
	for _, l := range s.listeners {
		l(ev)
	}
}

// ----------------------------- queries -------------------------------------

// CellState returns the state of (row, col).
func (s *Session) CellState(row, col int) (CellState, error) {
	c, ok := s.board.Cell(row, col)
	if !ok {
		return Hidden, fmt.Errorf("cell state %v: %w", Position{row, col}, ErrOutOfBounds)
	}
	return c.State, nil
}

// CellView returns (row, col) as the view layer should render it.
func (s *Session) CellView(row, col int) (CellUpdate, error) {
	if !s.board.InBounds(row, col) {
		return CellUpdate{}, fmt.Errorf("cell view %v: %w", Position{row, col}, ErrOutOfBounds)
	}
	p := Position{Row: row, Col: col}
	return s.board.at(p).view(p), nil
}

// FlagsRemaining is the mine counter shown to the player: mines - flags placed.
func (s *Session) FlagsRemaining() int { return s.settings.Mines - s.flagsPlaced }

// IsTerminal reports whether the game is won or lost.
func (s *Session) IsTerminal() bool { return s.status.Terminal() }

func (s *Session) Status() Status     { return s.status }
func (s *Session) Settings() Settings { return s.settings }
func (s *Session) FlagsPlaced() int   { return s.flagsPlaced }
func (s *Session) MinesFlagged() int  { return s.minesFlagged }
func (s *Session) OpenedCount() int   { return s.openedCount }

// Cause is the mine that ended a lost game, or nil.
func (s *Session) Cause() *Position {
	if s.cause == nil {
		return nil
	}
	p := *s.cause
	return &p
}

// SeedCommitment returns the generator's commitment when it publishes one.
func (s *Session) SeedCommitment() string {
	if c, ok := s.gen.(interface{ Commitment() string }); ok {
		return c.Commitment()
	}
	return ""
}

// Seed discloses the generator's seed, but only once the game is over.
func (s *Session) Seed() string {
	if !s.IsTerminal() {
		return ""
	}
	if sd, ok := s.gen.(interface{ Seed() string }); ok {
		return sd.Seed()
	}
	return ""
}

// Snapshot is a read-only, player-visible copy of the session.
type Snapshot struct {
	Settings
	Status         Status         `json:"status"`
	FlagsRemaining int            `json:"flagsRemaining"`
	OpenedCount    int            `json:"openedCount"`
	Cause          *Position      `json:"cause,omitempty"`
	Cells          [][]CellUpdate `json:"cells"`
}

// Snapshot renders every cell without exposing hidden mines.
func (s *Session) Snapshot() Snapshot {
	cells := make([][]CellUpdate, s.settings.Rows)
	for r := range cells {
		cells[r] = make([]CellUpdate, s.settings.Columns)
		for c := range cells[r] {
			p := Position{Row: r, Col: c}
			cells[r][c] = s.board.at(p).view(p)
		}
	}
	return Snapshot{
		Settings:       s.settings,
		Status:         s.status,
		FlagsRemaining: s.FlagsRemaining(),
		OpenedCount:    s.openedCount,
		Cause:          s.Cause(),
		Cells:          cells,
	}
}

// String renders the board for debugging and test failure output.
func (s *Session) String() string { return s.board.String() }
