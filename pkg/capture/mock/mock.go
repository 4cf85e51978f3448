// Package mock provides test doubles for the capture package interfaces.
//
// Pre-populate Session.TranscriptsCh with the values the consumer should
// receive, then close it when done:
//
//	sess := &mock.Session{TranscriptsCh: make(chan capture.Transcript, 4)}
//	p := &mock.Provider{Session: sess}
package mock

import (
	"context"
	"sync"

	"github.com/driftmap/driftmap/pkg/capture"
)

// StartSessionCall records a single Provider.StartSession invocation.
type StartSessionCall struct {
	Ctx context.Context
	Cfg capture.Config
}

// Provider is a mock capture.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by StartSession. If nil, a fresh Session with a
	// buffered channel is returned instead.
	Session capture.Session

	// StartSessionErr, if non-nil, is returned by every StartSession call.
	StartSessionErr error

	// StartSessionCalls records every call in order.
	StartSessionCalls []StartSessionCall
}

var _ capture.Provider = (*Provider)(nil)

func (p *Provider) StartSession(ctx context.Context, cfg capture.Config) (capture.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartSessionCalls = append(p.StartSessionCalls, StartSessionCall{Ctx: ctx, Cfg: cfg})
	if p.StartSessionErr != nil {
		return nil, p.StartSessionErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return &Session{TranscriptsCh: make(chan capture.Transcript, 16)}, nil
}

// Reset clears recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartSessionCalls = nil
}

// Session is a mock capture.Session. Callers own TranscriptsCh.
type Session struct {
	mu sync.Mutex

	// TranscriptsCh is returned by Transcripts(). Callers send to and
	// close it in tests.
	TranscriptsCh chan capture.Transcript

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// SendAudioCalls holds a copy of every chunk passed to SendAudio.
	SendAudioCalls [][]byte

	// CloseCalls is the number of Close invocations.
	CloseCalls int
}

var _ capture.Session = (*Session)(nil)

func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SendAudioCalls = append(s.SendAudioCalls, cp)
	return s.SendAudioErr
}

func (s *Session) Transcripts() <-chan capture.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TranscriptsCh
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return s.CloseErr
}
