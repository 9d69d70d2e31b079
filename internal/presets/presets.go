// internal/presets/presets.go
//
// Difficulty presets mapping a name to board settings.
// Wraps assets.PresetLines and exposes:
//   - Init():    eager load, so a broken presets file fails at startup
//   - Lookup():  settings for a preset name
//   - Names():   preset names in file order
//
// Notes:
//   • Data is lazily initialized once via sync.Once, reading from the embedded file.
//   • Lines are "name rows columns mines"; names are lowercase.
//   • Every preset must satisfy game.Settings.Validate.

package presets

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/robalobadob/minesweeper/assets"
	"github.com/robalobadob/minesweeper/internal/game"
)

// Default is the preset used when none is requested.
const Default = "beginner"

// Custom labels games started with explicit dimensions.
const Custom = "custom"

var (
	once    sync.Once                // ensures load runs once
	byName  map[string]game.Settings // preset name → settings
	names   []string                 // names in file order
	loadErr error                    // load error, if any
)

func load() {
	lines, err := assets.PresetLines()
	if err != nil {
		loadErr = fmt.Errorf("read presets: %w", err)
		return
	}
	byName, names, loadErr = parse(lines)
}

func parse(lines []string) (map[string]game.Settings, []string, error) {
	m := make(map[string]game.Settings, len(lines))
	var order []string
	for _, line := range lines {
		f := strings.Fields(line)
		if len(f) != 4 {
			return nil, nil, fmt.Errorf("preset %q: want 4 fields, got %d", line, len(f))
		}
		var nums [3]int
		for i := range nums {
			n, err := strconv.Atoi(f[i+1])
			if err != nil {
				return nil, nil, fmt.Errorf("preset %q: %w", f[0], err)
			}
			nums[i] = n
		}
		st := game.Settings{Rows: nums[0], Columns: nums[1], Mines: nums[2]}
		if err := st.Validate(); err != nil {
			return nil, nil, fmt.Errorf("preset %q: %w", f[0], err)
		}
		if _, dup := m[f[0]]; dup {
			return nil, nil, fmt.Errorf("preset %q defined twice", f[0])
		}
		m[f[0]] = st
		order = append(order, f[0])
	}
	return m, order, nil
}

// Init loads the presets and reports any error.
func Init() error {
	once.Do(load)
	return loadErr
}

// Lookup returns the settings for name (case-insensitive).
func Lookup(name string) (game.Settings, bool) {
	once.Do(load)
	st, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return st, ok
}

// Names returns preset names in file order.
func Names() []string {
	once.Do(load)
	return append([]string(nil), names...)
}
