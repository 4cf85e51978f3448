package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/driftmap/driftmap/pkg/capture"
	capmock "github.com/driftmap/driftmap/pkg/capture/mock"
)

func TestCaptureFallbackPrimarySuccess(t *testing.T) {
	sess := &capmock.Session{TranscriptsCh: make(chan capture.Transcript, 1)}
	primary := &capmock.Provider{Session: sess}
	secondary := &capmock.Provider{}

	fb := NewCaptureFallback("relay", primary, BreakerConfig{MaxFailures: 3}).
		AddFallback("deepgram", secondary)

	got, err := fb.StartSession(context.Background(), capture.Config{SampleRate: 16000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("session is nil")
	}
	if len(primary.StartSessionCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.StartSessionCalls))
	}
	if len(secondary.StartSessionCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.StartSessionCalls))
	}
	_ = got.Close()
}

func TestCaptureFallbackFailover(t *testing.T) {
	primary := &capmock.Provider{StartSessionErr: errors.New("relay down")}
	sess := &capmock.Session{TranscriptsCh: make(chan capture.Transcript, 1)}
	secondary := &capmock.Provider{Session: sess}

	fb := NewCaptureFallback("relay", primary, BreakerConfig{MaxFailures: 3}).
		AddFallback("deepgram", secondary)

	got, err := fb.StartSession(context.Background(), capture.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secondary.StartSessionCalls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.StartSessionCalls))
	}
	_ = got.Close()
}

func TestCaptureFallbackAllFail(t *testing.T) {
	primary := &capmock.Provider{StartSessionErr: errors.New("relay down")}
	secondary := &capmock.Provider{StartSessionErr: errors.New("deepgram down")}

	fb := NewCaptureFallback("relay", primary, BreakerConfig{MaxFailures: 3}).
		AddFallback("deepgram", secondary)

	if _, err := fb.StartSession(context.Background(), capture.Config{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
