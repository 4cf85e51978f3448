package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/driftmap/driftmap/internal/app"
	"github.com/driftmap/driftmap/pkg/capture"
)

// Client event types on the session WebSocket.
const (
	wsEventStart   = "start"
	wsEventInterim = "interim"
	wsEventFinal   = "final"
	wsEventAudio   = "audio"
	wsEventStop    = "stop"
)

// clientEvent is one client-to-server frame. Audio may arrive either as a
// base64 Data field or as a raw binary frame.
type clientEvent struct {
	Type  string `json:"type"`
	Owner string `json:"owner,omitempty"`
	Text  string `json:"text,omitempty"`
	Data  []byte `json:"data,omitempty"`
}

// handleSessionWS serves GET /api/v1/session/ws. The client drives the
// session: a start event opens it, interim/final/audio events feed it, and a
// stop event (or a dropped connection) ends it. Server events mirror the
// session's event channel as JSON text frames, ending with the stopped event.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx := r.Context()
	var (
		sess       *app.Session
		owner      string
		writerDone chan struct{}
	)

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			// Client went away mid-session: end the session so the
			// conversation still finalizes.
			if sess != nil {
				if _, stopErr := s.manager.Stop(context.WithoutCancel(ctx), owner); stopErr != nil {
					slog.Warn("session stop after disconnect failed", "owner", owner, "error", stopErr)
				}
			}
			return
		}

		if msgType == websocket.MessageBinary {
			s.forwardAudio(sess, data)
			continue
		}

		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.writeEvent(ctx, conn, map[string]string{"type": "error", "error": "invalid event"})
			continue
		}

		switch ev.Type {
		case wsEventStart:
			if sess != nil {
				s.writeEvent(ctx, conn, map[string]string{"type": "error", "error": "session already started"})
				continue
			}
			owner = ev.Owner
			if owner == "" {
				owner = r.URL.Query().Get("owner")
			}
			sess, err = s.manager.Start(ctx, owner)
			if err != nil {
				s.writeEvent(ctx, conn, map[string]string{"type": "error", "error": err.Error()})
				conn.Close(websocket.StatusPolicyViolation, "start rejected")
				return
			}
			writerDone = make(chan struct{})
			go s.writeEvents(ctx, conn, sess, writerDone)

		case wsEventInterim:
			if sess != nil {
				sess.HandleTranscript(ev.Text, false)
			}
		case wsEventFinal:
			if sess != nil {
				sess.HandleTranscript(ev.Text, true)
			}
		case wsEventAudio:
			s.forwardAudio(sess, ev.Data)

		case wsEventStop:
			if sess != nil {
				if _, err := s.manager.Stop(ctx, owner); err != nil {
					slog.Warn("session stop failed", "owner", owner, "error", err)
				}
				<-writerDone
			}
			conn.Close(websocket.StatusNormalClosure, "stopped")
			return

		default:
			s.writeEvent(ctx, conn, map[string]string{"type": "error", "error": "unknown event type"})
		}
	}
}

// writeEvents mirrors the session event stream onto the socket until the
// stopped event or until the connection context ends. The session's event
// channel is lossy, so termination is keyed off Done rather than off seeing
// the stopped event: when Done fires, the remaining buffered events are
// flushed and a stopped event is synthesized if the real one was dropped.
func (s *Server) writeEvents(ctx context.Context, conn *websocket.Conn, sess *app.Session, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sess.Events():
			if err := s.writeEvent(ctx, conn, ev); err != nil {
				return
			}
			if ev.Type == app.EventStopped {
				return
			}
		case <-sess.Done():
			s.drainEvents(ctx, conn, sess)
			return
		}
	}
}

// drainEvents flushes buffered session events after Stop. The terminal
// stopped event is written even when it was dropped from the buffer.
func (s *Server) drainEvents(ctx context.Context, conn *websocket.Conn, sess *app.Session) {
	for {
		select {
		case ev := <-sess.Events():
			if err := s.writeEvent(ctx, conn, ev); err != nil {
				return
			}
			if ev.Type == app.EventStopped {
				return
			}
		default:
			s.writeEvent(ctx, conn, app.Event{Type: app.EventStopped, Title: sess.Title()})
			return
		}
	}
}

// writeEvent marshals one server event as a text frame.
func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// forwardAudio passes raw audio to the session's capture backend. A backend
// that only takes relayed text rejects audio; that is the client's problem,
// not a server fault.
func (s *Server) forwardAudio(sess *app.Session, data []byte) {
	if sess == nil || len(data) == 0 {
		return
	}
	if err := sess.SendAudio(data); err != nil && !errors.Is(err, capture.ErrAudioUnsupported) {
		slog.Warn("audio forward failed", "error", err)
	}
}
