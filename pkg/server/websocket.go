package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noai-dev/noai/pkg/metrics"
	"github.com/noai-dev/noai/pkg/session"
)

// maxMessageSize bounds client messages; clients only send keepalives.
const maxMessageSize = 4096

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		metrics.RecordWebSocketError("upgrade")
		s.logger.Warn("websocket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	s.logger.Debug("websocket connected", "session_id", sess.ID)

	frames, unsubscribe := sess.Subscribe()
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, sess, frames, stop)
	}()

	// The first frame is the current badge state.
	_ = sess.Do(func() {
		sess.Emit(session.FrameNotifications, sess.Notifications.Snapshot())
	})

	s.readLoop(conn, sess)

	close(stop)
	unsubscribe()
	<-writerDone
	conn.Close()
	s.logger.Debug("websocket disconnected", "session_id", sess.ID)
}

// readLoop consumes client messages until the socket closes. Every message
// and pong counts as activity.
func (s *Server) readLoop(conn *websocket.Conn, sess *session.Session) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		sess.Touch()
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				metrics.RecordWebSocketError("read")
				s.logger.Error("read error", "session_id", sess.ID, "error", err)
			}
			return
		}
		sess.Touch()
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}
}

// writeLoop forwards session frames and sends heartbeats until stop
// closes. If the session closes or a write fails it closes conn, which ends
// the read loop.
func (s *Server) writeLoop(conn *websocket.Conn, sess *session.Session, frames <-chan session.Frame, stop <-chan struct{}) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				// Session closed under us.
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				conn.Close()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				metrics.RecordWebSocketError("write")
				s.logger.Warn("write error", "session_id", sess.ID, "error", err)
				conn.Close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				metrics.RecordWebSocketError("ping")
				conn.Close()
				return
			}

		case <-stop:
			return
		}
	}
}
