package layout

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

const (
	liveWriteWait   = 5 * time.Second
	liveIdleTimeout = 60 * time.Second
	liveReadLimit   = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
}

// handleLive sends the layer once, then regenerates it for every Reseed
// message until the client goes away. Bad messages get an ErrorResponse and
// the connection stays open.
func (s *Service) handleLive(w http.ResponseWriter, r *http.Request) {
	l, err := s.resolve(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug("ws_upgrade_failed", "layer", l.Name, "error", err)
		return
	}
	if !s.track(conn) {
		closeGoingAway(conn)
		return
	}
	defer s.untrack(conn)
	conn.SetReadLimit(liveReadLimit)

	s.logger.Debug("ws_connected", "layer", l.Name, "remote", r.RemoteAddr)

	if err := s.sendLayer(conn, l); err != nil {
		return
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(liveIdleTimeout)); err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("ws_read_failed", "layer", l.Name, "error", err)
			}
			return
		}

		next, err := s.applyReseed(l, data)
		if err != nil {
			if err := s.send(conn, ErrorResponse{Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		l = next
		if err := s.sendLayer(conn, l); err != nil {
			return
		}
	}
}

func (s *Service) applyReseed(l scatter.Layer, data []byte) (scatter.Layer, error) {
	var req Reseed
	if err := json.Unmarshal(data, &req); err != nil {
		return l, queryError{"message", "invalid JSON"}
	}
	if req.Seed != nil {
		l.Seed = *req.Seed
	}
	if req.Count != nil {
		if err := s.checkCount(uint64(*req.Count)); err != nil {
			return l, err
		}
		l.Count = *req.Count
	}
	return l, nil
}

func (s *Service) sendLayer(conn *websocket.Conn, l scatter.Layer) error {
	return s.send(conn, NewLayerResponse(l, s.cache.Particles(l)))
}

func (s *Service) send(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// track registers a live connection. It reports false once CloseLive has
// run, in which case the caller must close conn itself.
func (s *Service) track(conn *websocket.Conn) bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.closing {
		return false
	}
	s.live[conn] = struct{}{}
	return true
}

func (s *Service) untrack(conn *websocket.Conn) {
	s.liveMu.Lock()
	delete(s.live, conn)
	s.liveMu.Unlock()
	conn.Close()
}

// LiveCount returns the number of open websocket streams.
func (s *Service) LiveCount() int {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return len(s.live)
}

// CloseLive sends a going-away close frame to every open stream and closes
// it. Streams opened afterwards are refused. http.Server.Shutdown does not
// see hijacked connections, so serve mode runs this on shutdown.
func (s *Service) CloseLive() {
	s.liveMu.Lock()
	s.closing = true
	conns := make([]*websocket.Conn, 0, len(s.live))
	for c := range s.live {
		conns = append(conns, c)
	}
	s.liveMu.Unlock()

	if len(conns) > 0 {
		s.logger.Info("ws_closing", "streams", len(conns))
	}
	for _, c := range conns {
		closeGoingAway(c)
	}
}

// closeGoingAway is safe to call concurrently with the stream's own reads
// and writes: gorilla allows WriteControl and Close from any goroutine.
func closeGoingAway(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
}
