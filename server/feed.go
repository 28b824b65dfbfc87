package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/session"
)

// feedConn holds the newest undelivered snapshot for one WebSocket client.
// Offers overwrite the slot, so a slow reader skips intermediate states
// instead of blocking the core.
type feedConn struct {
	mu      sync.Mutex
	latest  session.Snapshot
	pending bool
	offered bool
	signal  chan struct{}
}

func newFeedConn() *feedConn {
	return &feedConn{signal: make(chan struct{}, 1)}
}

func (f *feedConn) offer(snap session.Snapshot) {
	f.mu.Lock()
	f.latest = snap
	f.pending = true
	f.offered = true
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// seed stores the initial snapshot unless a change notification already
// delivered a newer one.
func (f *feedConn) seed(snap session.Snapshot) {
	f.mu.Lock()
	if f.offered {
		f.mu.Unlock()
		return
	}
	f.latest = snap
	f.pending = true
	f.offered = true
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *feedConn) take() (session.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pending {
		return session.Snapshot{}, false
	}
	f.pending = false
	return f.latest, true
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.emit(r.Context(), EventFeedError, observability.LevelWarning, map[string]any{
			"stage": "upgrade",
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.emit(r.Context(), EventFeedOpen, observability.LevelInfo, map[string]any{
		"remote":     remote,
		"session_id": s.core.SessionID(),
	})

	feed := newFeedConn()
	cancel := s.core.Subscribe(feed.offer)
	defer cancel()
	feed.seed(s.core.Snapshot())

	pongWait := s.cfg.pongWait()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is one-way; reading only services control frames and
	// detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = s.writeFeed(conn, feed, done)

	data := map[string]any{"remote": remote}
	if err != nil {
		data["error"] = err.Error()
	}
	s.emit(r.Context(), EventFeedClose, observability.LevelInfo, data)
}

func (s *Server) writeFeed(conn *websocket.Conn, feed *feedConn, done <-chan struct{}) error {
	ticker := time.NewTicker(s.cfg.PingInterval.Std())
	defer ticker.Stop()

	writeTimeout := s.cfg.WriteTimeout.Std()

	for {
		select {
		case <-done:
			return nil
		case <-feed.signal:
			snap, ok := feed.take()
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		}
	}
}
