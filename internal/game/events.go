package game

// EventKind names a state change a view layer may want to render.
type EventKind string

const (
	EventCellOpened    EventKind = "cell_opened"
	EventCellFlagged   EventKind = "cell_flagged"
	EventCellUnflagged EventKind = "cell_unflagged"
	EventCellMarked    EventKind = "cell_marked" // wrong flag revealed by the loss sweep
	EventGameWon       EventKind = "game_won"
	EventGameLost      EventKind = "game_lost"
	EventGameReset     EventKind = "game_reset"
)

// Event is delivered to listeners synchronously, after the mutation it describes.
type Event struct {
	Kind           EventKind   `json:"kind"`
	Cell           *CellUpdate `json:"cell,omitempty"`
	Status         Status      `json:"status"`
	FlagsRemaining int         `json:"flagsRemaining"`
}

// Listener receives session events. It runs on the caller's goroutine while the
// command is still in progress, so it must not call back into the session.
type Listener func(Event)
