// Package relay implements capture.Provider for browsers that run speech
// recognition locally and relay the results over the session WebSocket.
//
// The server never sees audio on this path: the WebSocket handler feeds each
// interim and final text frame into the session with Push, and the session
// republishes it on the Transcripts channel like any other backend. That
// keeps the session pipeline identical whether recognition happened in the
// browser or server-side.
package relay

import (
	"context"
	"sync"

	"github.com/driftmap/driftmap/pkg/capture"
)

const transcriptBuffer = 64

// Provider implements capture.Provider. The zero value is ready to use.
type Provider struct{}

var _ capture.Provider = (*Provider)(nil)

// New returns a relay Provider.
func New() *Provider {
	return &Provider{}
}

// StartSession opens a relay session. The config's audio fields are ignored;
// recognition already happened in the browser.
func (p *Provider) StartSession(ctx context.Context, cfg capture.Config) (capture.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Session{
		transcripts: make(chan capture.Transcript, transcriptBuffer),
		done:        make(chan struct{}),
	}, nil
}

// Session is a live relay session. The WebSocket handler is the producer
// (Push), the session pipeline is the consumer (Transcripts).
type Session struct {
	transcripts chan capture.Transcript

	mu   sync.Mutex
	done chan struct{}
}

var _ capture.Session = (*Session)(nil)

// Push publishes a transcript relayed from the browser. Pushes after Close
// return capture.ErrSessionClosed; a full buffer drops the transcript rather
// than blocking the WebSocket read loop.
func (s *Session) Push(text string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return capture.ErrSessionClosed
	default:
	}
	select {
	case s.transcripts <- capture.Transcript{Text: text, Final: final}:
	default:
	}
	return nil
}

// SendAudio always fails: relay sessions carry recognised text, not audio.
func (s *Session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return capture.ErrSessionClosed
	default:
	}
	return capture.ErrAudioUnsupported
}

// Transcripts returns the relayed transcript stream.
func (s *Session) Transcripts() <-chan capture.Transcript { return s.transcripts }

// Close ends the session and closes the Transcripts channel.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	close(s.transcripts)
	return nil
}
