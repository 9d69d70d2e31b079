// internal/game/types.go
//
// Core type definitions for the minesweeper engine.
// Defines:
//   - Position: a (row, col) coordinate on the grid.
//   - CellState / Cell: per-cell state (hidden, flagged, opened) and mine data.
//   - Mark: end-of-game presentation hints set by the loss sweep.
//   - Status: session lifecycle (active → won | lost).
//   - CellUpdate, RevealResult, FlagResult: what each command hands back to the view layer.

package game

import "fmt"

// Position is a zero-based (row, col) coordinate.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// CellState is the player-visible state of a cell.
// Hidden → Flagged → Hidden toggles; Hidden → Opened is terminal for the cell.
type CellState int

const (
	Hidden CellState = iota
	Flagged
	Opened
)

func (s CellState) String() string {
	switch s {
	case Flagged:
		return "flagged"
	case Opened:
		return "opened"
	default:
		return "hidden"
	}
}

// MarshalText encodes the state as its lowercase name so JSON payloads stay readable.
func (s CellState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CellState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hidden":
		*s = Hidden
	case "flagged":
		*s = Flagged
	case "opened":
		*s = Opened
	default:
		return fmt.Errorf("unknown cell state %q", b)
	}
	return nil
}

// Mark carries presentation hints for the end-of-game board.
// Possible values:
//   - "":           no hint.
//   - "exploded":   the mine that ended the game.
//   - "mine":       an unflagged mine revealed by the loss sweep.
//   - "wrong_flag": a flag that was placed on a safe cell.
type Mark string

const (
	MarkNone      Mark = ""
	MarkExploded  Mark = "exploded"
	MarkMine      Mark = "mine"
	MarkWrongFlag Mark = "wrong_flag"
)

// Cell holds the state of one grid position.
type Cell struct {
	HasMine  bool      // Fixed at board initialization.
	State    CellState // Hidden, Flagged or Opened.
	Adjacent int       // Mines among the neighbors; meaningful once Opened and !HasMine.
	Mark     Mark      // Set only by the loss sweep.
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// Terminal reports whether no further commands except Reset are accepted.
func (s Status) Terminal() bool { return s == StatusWon || s == StatusLost }

// CellUpdate describes a cell as the view layer should render it.
// Mine is only ever true for opened cells, so hidden layouts never leak.
type CellUpdate struct {
	Row   int       `json:"row"`
	Col   int       `json:"col"`
	State CellState `json:"state"`
	Label int       `json:"label"`
	Mine  bool      `json:"mine,omitempty"`
	Mark  Mark      `json:"mark,omitempty"`
}

// view projects a cell into its player-visible form.
func (c *Cell) view(p Position) CellUpdate {
	u := CellUpdate{Row: p.Row, Col: p.Col, State: c.State, Mark: c.Mark}
	if c.State == Opened {
		u.Mine = c.HasMine
		if !c.HasMine {
			u.Label = c.Adjacent
		}
	}
	return u
}

// RevealResult is returned by Session.Reveal.
// Applied is false when the command was a no-op (terminal game, flagged or opened target).
// On a loss, Opened also carries the swept cells, including wrong-flag marks.
type RevealResult struct {
	Opened  []CellUpdate `json:"opened"`
	Outcome Status       `json:"outcome"`
	Applied bool         `json:"applied"`
}

// FlagResult is returned by Session.ToggleFlag.
type FlagResult struct {
	Flagged        bool   `json:"flagged"`
	FlagsRemaining int    `json:"flagsRemaining"`
	Outcome        Status `json:"outcome"`
	Applied        bool   `json:"applied"`
}
