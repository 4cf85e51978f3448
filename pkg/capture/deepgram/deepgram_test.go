package deepgram

import (
	"net/url"
	"testing"

	"github.com/driftmap/driftmap/pkg/capture"
)

func TestBuildURLDefaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(capture.Config{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "interim_results", "true", q.Get("interim_results"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestBuildURLConfigOverrides(t *testing.T) {
	p, err := New("key", WithModel("base"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(capture.Config{
		SampleRate: 48000,
		Language:   "de-DE",
		Keywords:   []string{"Grafana", "Kubernetes"},
	})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
	assertEqual(t, "sample_rate", "48000", q.Get("sample_rate"))

	kws := q["keywords"]
	if len(kws) != 2 {
		t.Fatalf("keywords = %v, want 2 entries", kws)
	}
}

func TestBuildURLNoKeywords(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rawURL, err := p.buildURL(capture.Config{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(rawURL)
	if _, ok := u.Query()["keywords"]; ok {
		t.Error("expected no 'keywords' param when none provided")
	}
}

func TestParseResultsFinal(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "hello world",
				"confidence": 0.95
			}]
		}
	}`)

	tr, ok := parseResults(raw)
	if !ok {
		t.Fatal("expected ok=true for valid Results message")
	}
	if !tr.Final {
		t.Error("expected Final=true")
	}
	assertEqual(t, "text", "hello world", tr.Text)
	if tr.Confidence != 0.95 {
		t.Errorf("confidence = %f, want 0.95", tr.Confidence)
	}
}

func TestParseResultsInterim(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": false,
		"channel": {"alternatives": [{"transcript": "hello", "confidence": 0.7}]}
	}`)

	tr, ok := parseResults(raw)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if tr.Final {
		t.Error("expected Final=false for interim result")
	}
	assertEqual(t, "text", "hello", tr.Text)
}

func TestParseResultsSkipped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"non-Results type", `{"type":"Metadata","request_id":"abc"}`},
		{"empty alternatives", `{"type":"Results","is_final":true,"channel":{"alternatives":[]}}`},
		{"invalid JSON", `{invalid`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseResults([]byte(tt.raw)); ok {
				t.Error("expected ok=false")
			}
		})
	}
}

func TestNewEmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
}

func assertEqual(t *testing.T, label, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %q, got %q", label, want, got)
	}
}
