package game

import (
	"github.com/gammazero/deque"
	"github.com/zyedidia/generic/mapset"
)

// FloodFill opens the connected region starting at (row, col) and returns the
// opened cells in the order they were opened.
//
// The frontier is processed FIFO. A position is enqueued at most once while
// pending; flagged cells are never opened and never expanded, and mines are
// skipped. Starting on a cell that is not hidden opens nothing, which makes
// repeated calls on an opened cell a no-op.
func FloodFill(b *Board, row, col int) []CellUpdate {
	start := Position{Row: row, Col: col}
	if !b.InBounds(row, col) || b.at(start).State != Hidden {
		return nil
	}

	var frontier deque.Deque[Position]
	pending := mapset.New[Position]()
	frontier.PushBack(start)
	pending.Put(start)

	var opened []CellUpdate
	for frontier.Len() > 0 {
		p := frontier.PopFront()
		pending.Remove(p)

		cell := b.at(p)
		if cell.State != Hidden || cell.HasMine {
			continue
		}
		cell.State = Opened
		cell.Adjacent = b.MineCountAround(p.Row, p.Col)
		opened = append(opened, cell.view(p))

		if cell.Adjacent > 0 {
			continue
		}
		for _, n := range b.Neighbors(p.Row, p.Col) {
			if b.at(n).State == Opened || pending.Has(n) {
				continue
			}
			frontier.PushBack(n)
			pending.Put(n)
		}
	}
	return opened
}
