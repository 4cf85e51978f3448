// Package deepgram implements capture.Provider on the Deepgram streaming
// WebSocket API. It is the server-side transcription path for browsers that
// relay raw audio instead of recognised text.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/driftmap/driftmap/pkg/capture"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model ("nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithEndpoint overrides the streaming endpoint URL. Used in tests to point
// at a local WebSocket server.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements capture.Provider backed by Deepgram.
type Provider struct {
	apiKey   string
	endpoint string
	model    string
	language string
}

var _ capture.Provider = (*Provider)(nil)

// New returns a Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartSession dials the streaming endpoint and begins transcription.
func (p *Provider) StartSession(ctx context.Context, cfg capture.Config) (capture.Session, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	sess := &session{
		conn:        conn,
		transcripts: make(chan capture.Transcript, 64),
		audio:       make(chan []byte, 256),
		done:        make(chan struct{}),
	}
	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)
	return sess, nil
}

func (p *Provider) buildURL(cfg capture.Config) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("channels", "1")
	for _, kw := range cfg.Keywords {
		q.Add("keywords", kw)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// resultsMessage is Deepgram's JSON payload for a Results event.
type resultsMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram stream. It implements capture.Session.
type session struct {
	conn        *websocket.Conn
	transcripts chan capture.Transcript
	audio       chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

var _ capture.Session = (*session)(nil)

// SendAudio queues a PCM chunk for delivery to Deepgram.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return capture.ErrSessionClosed
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return capture.ErrSessionClosed
	}
}

func (s *session) Transcripts() <-chan capture.Transcript { return s.transcripts }

// Close flushes pending audio and tears down the connection.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		// CloseStream tells Deepgram to finalise buffered audio.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Flush whatever is still queued.
			for {
				select {
				case chunk := <-s.audio:
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.transcripts)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		t, ok := parseResults(msg)
		if !ok {
			continue
		}
		select {
		case s.transcripts <- t:
		case <-s.done:
		}
	}
}

// parseResults converts a raw Deepgram message into a Transcript. Non-Results
// messages and empty alternatives are skipped.
func parseResults(data []byte) (capture.Transcript, bool) {
	var msg resultsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return capture.Transcript{}, false
	}
	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return capture.Transcript{}, false
	}
	alt := msg.Channel.Alternatives[0]
	return capture.Transcript{
		Text:       alt.Transcript,
		Final:      msg.IsFinal,
		Confidence: alt.Confidence,
	}, true
}
