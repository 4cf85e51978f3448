// Package capture defines the Provider interface for speech capture backends.
//
// A capture provider turns a live microphone feed into a stream of
// transcripts. The usual deployment runs recognition in the browser and
// relays finished text to the server (see the relay subpackage); when a
// browser cannot recognise speech locally, the client ships raw audio
// instead and a server-side backend such as Deepgram transcribes it.
//
// A Session emits both interim transcripts (low-latency guesses, UI echo
// only) and final ones (authoritative, fed to the chunk buffer) on a single
// channel, distinguished by the Final flag. Implementations must be safe for
// concurrent use.
package capture

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by Session methods after Close.
var ErrSessionClosed = errors.New("capture: session is closed")

// ErrAudioUnsupported is returned by SendAudio on providers that receive
// relayed text and never handle raw audio.
var ErrAudioUnsupported = errors.New("capture: provider does not accept audio")

// Transcript is one recognition result, interim or final.
type Transcript struct {
	// Text is the recognised speech.
	Text string

	// Final reports whether the provider has committed to this result.
	// Interim transcripts may be revised or dropped entirely.
	Final bool

	// Confidence is the provider's score in [0, 1], zero when unreported.
	Confidence float64
}

// Config describes the audio format and recognition hints for a new session.
type Config struct {
	// SampleRate in Hz for audio-carrying sessions. Ignored by providers
	// that receive text instead of audio.
	SampleRate int

	// Language is a BCP-47 tag ("en-US"). Empty lets the provider decide.
	Language string

	// Keywords are vocabulary hints for uncommon words. Providers without
	// keyword boosting ignore them.
	Keywords []string
}

// Session is an open capture stream.
//
// Callers must call Close when done; the Transcripts channel is closed as
// part of shutdown.
type Session interface {
	// SendAudio delivers a chunk of raw PCM audio for transcription.
	// Providers that expect relayed text return an error.
	SendAudio(chunk []byte) error

	// Transcripts returns the stream of recognition results. The channel
	// is closed when the session ends.
	Transcripts() <-chan Transcript

	// Close ends the session and releases its resources. Safe to call
	// more than once.
	Close() error
}

// Provider opens capture sessions. Multiple sessions may be open at once.
type Provider interface {
	StartSession(ctx context.Context, cfg Config) (Session, error)
}

// TextPusher is implemented by sessions that are fed recognised text from
// outside instead of audio, such as the browser relay. Callers that hold
// externally recognised transcripts should push them through the session so
// they reach the Transcripts channel like any other result.
type TextPusher interface {
	Push(text string, final bool) error
}
