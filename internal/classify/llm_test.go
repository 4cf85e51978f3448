package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/driftmap/driftmap/pkg/provider/llm"
	llmmock "github.com/driftmap/driftmap/pkg/provider/llm/mock"
)

func TestLLMClassify(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantOnTrack bool
		wantSummary string
	}{
		{
			name:        "on track verdict",
			reply:       "ON_TRACK | quarterly budget review",
			wantOnTrack: true,
			wantSummary: "quarterly budget review",
		},
		{
			name:        "off track verdict",
			reply:       "OFF_TRACK | weekend plans",
			wantOnTrack: false,
			wantSummary: "weekend plans",
		},
		{
			name:        "lowercase verdict accepted",
			reply:       "off_track | lunch options",
			wantOnTrack: false,
			wantSummary: "lunch options",
		},
		{
			name:        "missing summary uses token fallback",
			reply:       "ON_TRACK",
			wantOnTrack: true,
			wantSummary: "we kept discussing the",
		},
		{
			name:        "extra lines ignored",
			reply:       "ON_TRACK | sprint goals\nSure, anything else?",
			wantOnTrack: true,
			wantSummary: "sprint goals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &llmmock.Provider{
				CompleteResponse: &llm.CompletionResponse{Content: tt.reply},
			}
			result, err := NewLLM(p).Classify(context.Background(), "we kept discussing the roadmap", "roadmap")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if result.OnTrack != tt.wantOnTrack || result.Summary != tt.wantSummary {
				t.Errorf("result = %+v, want onTrack=%v summary=%q", result, tt.wantOnTrack, tt.wantSummary)
			}
		})
	}
}

func TestLLMClassifySendsPreviousSummary(t *testing.T) {
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "ON_TRACK | x"},
	}
	if _, err := NewLLM(p).Classify(context.Background(), "chunk text", "prior label"); err != nil {
		t.Fatalf("Classify: %v", err)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(calls))
	}
	req := calls[0].Req
	if req.SystemPrompt == "" {
		t.Error("system prompt not set")
	}
	if len(req.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(req.Messages))
	}
	content := req.Messages[0].Content
	if want := "Current topic: prior label"; !strings.Contains(content, want) {
		t.Errorf("prompt %q missing %q", content, want)
	}
	if !strings.Contains(content, "chunk text") {
		t.Errorf("prompt %q missing chunk text", content)
	}
}

func TestLLMClassifyErrors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		p := &llmmock.Provider{CompleteErr: errors.New("backend down")}
		if _, err := NewLLM(p).Classify(context.Background(), "chunk", ""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unparseable verdict", func(t *testing.T) {
		p := &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{Content: "I think it is on track"},
		}
		if _, err := NewLLM(p).Classify(context.Background(), "chunk", ""); err == nil {
			t.Fatal("expected error for unparseable reply")
		}
	})

	t.Run("nil response", func(t *testing.T) {
		p := &llmmock.Provider{}
		if _, err := NewLLM(p).Classify(context.Background(), "chunk", ""); err == nil {
			t.Fatal("expected error for nil response")
		}
	})
}
