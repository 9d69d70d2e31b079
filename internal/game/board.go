// internal/game/board.go
//
// Fixed-size grid of cells.
// Responsibilities:
//   - Own the mine layout and per-cell state.
//   - Answer adjacency queries (Neighbors, MineCountAround).
//
// The board knows nothing about flags budgets or win/loss; Session does.

package game

import "strings"

// Board is a rows × columns matrix of cells.
type Board struct {
	rows  int
	cols  int
	mines int
	cells [][]Cell
}

// NewBoard allocates a board and places mines at the given positions.
func NewBoard(rows, cols int, mines []Position) *Board {
	b := &Board{}
	b.Initialize(rows, cols, mines)
	return b
}

// Initialize replaces any prior grid with an all-hidden one and marks mines.
// Positions must be in bounds; duplicates are counted once.
func (b *Board) Initialize(rows, cols int, mines []Position) {
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
	}
	count := 0
	for _, p := range mines {
		if !cells[p.Row][p.Col].HasMine {
			cells[p.Row][p.Col].HasMine = true
			count++
		}
	}
	b.rows, b.cols, b.mines, b.cells = rows, cols, count, cells
}

func (b *Board) Rows() int    { return b.rows }
func (b *Board) Columns() int { return b.cols }
func (b *Board) Mines() int   { return b.mines }

// InBounds reports whether (row, col) lies on the grid.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}

// Cell returns a copy of the cell at (row, col).
func (b *Board) Cell(row, col int) (Cell, bool) {
	if !b.InBounds(row, col) {
		return Cell{}, false
	}
	return b.cells[row][col], true
}

func (b *Board) at(p Position) *Cell { return &b.cells[p.Row][p.Col] }

// Neighbors returns the up-to-8 in-bounds positions around (row, col),
// enumerated row-major: row-1..row+1, then col-1..col+1, skipping self.
func (b *Board) Neighbors(row, col int) []Position {
	out := make([]Position, 0, 8)
	for r := row - 1; r <= row+1; r++ {
		if r < 0 || r >= b.rows {
			continue
		}
		for c := col - 1; c <= col+1; c++ {
			if c < 0 || c >= b.cols || (r == row && c == col) {
				continue
			}
			out = append(out, Position{Row: r, Col: c})
		}
	}
	return out
}

// MineCountAround counts mines among the neighbors of (row, col).
func (b *Board) MineCountAround(row, col int) int {
	n := 0
	for _, p := range b.Neighbors(row, col) {
		if b.at(p).HasMine {
			n++
		}
	}
	return n
}

// String renders the board the way a player would see it:
// "-" hidden, "F" flagged, "*" opened mine, "x" wrong flag, "." empty, digits for counts.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			cell := b.cells[r][c]
			switch {
			case cell.Mark == MarkWrongFlag:
				sb.WriteByte('x')
			case cell.State == Flagged:
				sb.WriteByte('F')
			case cell.State == Hidden:
				sb.WriteByte('-')
			case cell.HasMine:
				sb.WriteByte('*')
			case cell.Adjacent == 0:
				sb.WriteByte('.')
			default:
				sb.WriteByte(byte('0' + cell.Adjacent))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
