package daemon

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"autocut/internal/api"
	"autocut/internal/logging"
	"autocut/internal/workflow"
)

const (
	// pingInterval keeps idle sockets alive; clients echo pongs.
	pingInterval = 20 * time.Second
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The daemon serves local tooling; the bearer token is the access
	// control, not the Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents upgrades to a WebSocket and relays the job's progress
// stream: replayed history first, then live events until the job
// reaches a terminal state.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	sub := s.daemon.manager.Subscribe(job.ID)
	defer sub.Cancel()

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	// Reader goroutine: drain client frames (pong echoes, close).
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case evt, open := <-sub.Events():
			if !open {
				deadline := time.Now().Add(writeTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(eventMessage(evt)); err != nil {
				s.logger.Debug("event socket write failed",
					logging.String(logging.FieldJobID, job.ID), logging.Error(err))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func eventMessage(evt workflow.Event) api.EventMessage {
	return api.EventMessage{
		Kind:     string(evt.Kind),
		Progress: evt.Progress,
		Message:  evt.Message,
		Report:   evt.Report,
		Reason:   evt.Reason,
	}
}
