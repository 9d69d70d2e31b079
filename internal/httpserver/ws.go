// internal/httpserver/ws.go
//
// GET /game/{id}/events: a websocket carrying the session's engine events.
// The connection starts with a "snapshot" frame, then one "event" frame per
// engine event. Clients still send commands over HTTP; anything they write on
// the socket is read and discarded so pongs and close frames are processed.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	eventQueue = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// frame is the envelope written to the socket.
type frame struct {
	Type     string         `json:"type"` // snapshot | event | overflow
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
	Event    *game.Event    `json:"event,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.authorize(r, id); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	origin := s.cfg.ClientOrigin
	up := upgrader
	up.CheckOrigin = func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || o == origin || o == "http://"+r.Host || o == "https://"+r.Host
	}

	// Subscribe before upgrading so an unknown game is still a plain 404.
	events := make(chan game.Event, eventQueue)
	overflow := make(chan struct{})
	var (
		snap   game.Snapshot
		cancel func()
		full   bool
	)
	err := s.store.Update(r.Context(), id, func(g *store.Game) error {
		snap = g.Session.Snapshot()
		cancel = g.Session.Subscribe(func(ev game.Event) {
			if full {
				return
			}
			select {
			case events <- ev:
			default:
				// Slow reader: stop queueing and tell the client to resync.
				full = true
				close(overflow)
			}
		})
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	unsubscribe := func() {
		// The request context may already be done; cancel must still run.
		_ = s.store.Update(context.Background(), id, func(*store.Game) error {
			cancel()
			return nil
		})
	}

	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		log.Warn().Err(err).Str("gameId", id).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	defer unsubscribe()
	log.Debug().Str("gameId", id).Msg("event stream opened")

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeFrame(conn, frame{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}
	for {
		select {
		case <-done:
			log.Debug().Str("gameId", id).Msg("event stream closed")
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writeFrame(conn, frame{Type: "event", Event: &ev}); err != nil {
				return
			}
		case <-overflow:
			_ = writeFrame(conn, frame{Type: "overflow"})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "event queue overflow"),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

// readPump drains client frames until the connection fails, then closes done.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
