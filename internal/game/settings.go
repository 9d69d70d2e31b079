package game

import (
	"fmt"
	"math"
)

// Settings are the board parameters a session is (re)started with.
type Settings struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
	Mines   int `json:"mines"`
}

// Validate rejects boards that cannot be generated.
// mines >= rows*columns is refused here because the generator would never terminate.
func (s Settings) Validate() error {
	if s.Rows <= 0 || s.Columns <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSettings, s.Rows, s.Columns)
	}
	if s.Rows > math.MaxInt/s.Columns {
		return fmt.Errorf("%w: %dx%d overflows", ErrInvalidSettings, s.Rows, s.Columns)
	}
	if s.Mines < 0 {
		return fmt.Errorf("%w: %d mines", ErrInvalidSettings, s.Mines)
	}
	if s.Mines >= s.Cells() {
		return fmt.Errorf("%w: %d mines on %d cells", ErrTooManyMines, s.Mines, s.Cells())
	}
	return nil
}

// Cells is the total number of grid positions.
func (s Settings) Cells() int { return s.Rows * s.Columns }

// SafeCells is the number of cells that must be opened to win.
func (s Settings) SafeCells() int { return s.Cells() - s.Mines }
