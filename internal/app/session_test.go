package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/driftmap/driftmap/internal/classify"
	"github.com/driftmap/driftmap/internal/vocab"
	storemem "github.com/driftmap/driftmap/pkg/store/memory"
)

// stubClassifier returns queued results in order, repeating the last one, and
// records every call. A non-nil gate blocks Classify until the gate closes.
type stubClassifier struct {
	mu      sync.Mutex
	calls   []classifyCall
	results []classify.Result
	gate    chan struct{}
}

type classifyCall struct {
	chunk string
	prev  string
}

func (c *stubClassifier) Classify(_ context.Context, chunk, previousSummary string) (classify.Result, bool) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, classifyCall{chunk: chunk, prev: previousSummary})
	if len(c.results) == 0 {
		return classify.Result{OnTrack: true, Summary: "stub"}, false
	}
	res := c.results[0]
	if len(c.results) > 1 {
		c.results = c.results[1:]
	}
	return res, false
}

func (c *stubClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func startTestSession(t *testing.T, deps sessionDeps) *Session {
	t.Helper()
	sess := newSession("owner-1", deps)
	if err := sess.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { sess.Stop(context.Background()) })
	return sess
}

func waitEvent(t *testing.T, sess *Session, typ string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sess.Events():
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", typ)
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSessionPipelineAppendsNode(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()
	cls := &stubClassifier{results: []classify.Result{{OnTrack: true, Summary: "budget review"}}}
	sess := startTestSession(t, sessionDeps{classifier: cls, store: st})

	sess.OnFinalText("we went through the budget numbers")
	waitEvent(t, sess, EventPulse)

	sess.onTick(ctx)
	ev := waitEvent(t, sess, EventNode)
	if ev.Node.Label != "budget review" || ev.Node.BranchLevel != 0 {
		t.Errorf("node = %+v", ev.Node)
	}
	if ev.Layout == nil || len(ev.Layout.Positions) != 1 {
		t.Fatalf("layout = %+v", ev.Layout)
	}

	eventually(t, func() bool {
		convs, _ := st.ListConversations(ctx, "owner-1")
		if len(convs) != 1 {
			return false
		}
		nodes, _ := st.ListNodes(ctx, convs[0].ID)
		segs, _ := st.ListSegments(ctx, convs[0].ID)
		return len(nodes) == 1 && len(segs) == 1
	}, "node and segment never persisted")

	if sess.ConversationID() == "" {
		t.Error("conversation id not recorded on session")
	}
}

func TestSessionBranchLevels(t *testing.T) {
	ctx := context.Background()
	cls := &stubClassifier{results: []classify.Result{
		{OnTrack: true, Summary: "main topic"},
		{OnTrack: false, Summary: "lunch tangent"},
	}}
	sess := startTestSession(t, sessionDeps{classifier: cls})

	sess.OnFinalText("the main topic continues")
	sess.onTick(ctx)
	first := waitEvent(t, sess, EventNode)

	sess.OnFinalText("anyway what about lunch")
	sess.onTick(ctx)
	second := waitEvent(t, sess, EventNode)

	if first.Node.BranchLevel != 0 || second.Node.BranchLevel != 1 {
		t.Errorf("branch levels = %d, %d; want 0, 1", first.Node.BranchLevel, second.Node.BranchLevel)
	}
	if second.Layout.Positions[1].X <= second.Layout.Positions[0].X {
		t.Errorf("branch node not offset: %+v", second.Layout.Positions)
	}

	cls.mu.Lock()
	prev := cls.calls[1].prev
	cls.mu.Unlock()
	if prev != "main topic" {
		t.Errorf("second classification saw previous label %q, want %q", prev, "main topic")
	}
}

func TestSessionEmptyTickSkipsClassification(t *testing.T) {
	cls := &stubClassifier{}
	sess := startTestSession(t, sessionDeps{classifier: cls})

	sess.onTick(context.Background())
	sess.OnFinalText("   \n ")
	sess.onTick(context.Background())

	time.Sleep(50 * time.Millisecond)
	if n := cls.callCount(); n != 0 {
		t.Errorf("classifier called %d times for empty ticks", n)
	}
}

func TestSessionInterimNeverBuffered(t *testing.T) {
	cls := &stubClassifier{}
	sess := startTestSession(t, sessionDeps{classifier: cls})

	sess.OnInterimText("half a sente")
	ev := waitEvent(t, sess, EventInterim)
	if ev.Text != "half a sente" {
		t.Errorf("interim text = %q", ev.Text)
	}

	sess.onTick(context.Background())
	time.Sleep(50 * time.Millisecond)
	if n := cls.callCount(); n != 0 {
		t.Errorf("interim text reached the classifier (%d calls)", n)
	}
}

func TestSessionStopDiscardsInFlightResult(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	cls := &stubClassifier{gate: gate}
	sess := startTestSession(t, sessionDeps{classifier: cls})

	sess.OnFinalText("some text to classify")
	sess.onTick(ctx)

	if _, err := sess.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	close(gate)

	time.Sleep(50 * time.Millisecond)
	if n := sess.builder.Len(); n != 0 {
		t.Errorf("in-flight result applied after stop: %d nodes", n)
	}
}

func TestSessionStopTwice(t *testing.T) {
	sess := startTestSession(t, sessionDeps{classifier: &stubClassifier{}})
	if _, err := sess.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if _, err := sess.Stop(context.Background()); err == nil {
		t.Error("second Stop should fail")
	}
}

func TestSessionStopFinalizesConversation(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()
	cls := &stubClassifier{results: []classify.Result{
		{OnTrack: true, Summary: "budget planning meeting"},
		{OnTrack: true, Summary: "budget numbers review"},
	}}
	sess := startTestSession(t, sessionDeps{classifier: cls, store: st})

	sess.OnFinalText("first chunk about the budget planning")
	sess.onTick(ctx)
	waitEvent(t, sess, EventNode)
	sess.OnFinalText("second chunk with the budget numbers")
	sess.onTick(ctx)
	waitEvent(t, sess, EventNode)

	title, err := sess.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !strings.Contains(title, "budget") {
		t.Errorf("title = %q, want dominant label token", title)
	}

	stopped := waitEvent(t, sess, EventStopped)
	if stopped.Title != title {
		t.Errorf("stopped event title = %q, want %q", stopped.Title, title)
	}

	convID := sess.ConversationID()
	conv, err := st.GetConversation(ctx, convID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if !conv.Finalized || conv.Title != title {
		t.Errorf("conversation after stop: %+v", conv)
	}

	eventually(t, func() bool {
		conv, _ := st.GetConversation(ctx, convID)
		return conv.Sentiment != "" && conv.BrainWave != ""
	}, "insights never attached")
}

func TestSessionSegmentsGetTagged(t *testing.T) {
	ctx := context.Background()
	st := storemem.New()
	cls := &stubClassifier{results: []classify.Result{{OnTrack: true, Summary: "release went well"}}}
	sess := startTestSession(t, sessionDeps{classifier: cls, store: st})

	sess.OnFinalText("the release went great, everyone is happy")
	sess.onTick(ctx)
	waitEvent(t, sess, EventNode)

	eventually(t, func() bool {
		convs, _ := st.ListConversations(ctx, "owner-1")
		if len(convs) != 1 {
			return false
		}
		segs, _ := st.ListSegments(ctx, convs[0].ID)
		return len(segs) == 1 && segs[0].Sentiment == "positive"
	}, "segment never tagged with lexicon sentiment")
}

func TestSessionVocabularyCorrection(t *testing.T) {
	ctx := context.Background()
	cls := &stubClassifier{}
	corrector := vocab.New([]string{"Grafana"})
	sess := startTestSession(t, sessionDeps{classifier: cls, corrector: corrector})

	sess.OnFinalText("we deployed grafanna to production")
	sess.onTick(ctx)
	waitEvent(t, sess, EventNode)

	cls.mu.Lock()
	chunk := cls.calls[0].chunk
	cls.mu.Unlock()
	if !strings.Contains(chunk, "Grafana") {
		t.Errorf("chunk = %q, want corrected keyword", chunk)
	}
}

func TestSessionStopSignalsDoneWithFullEventBuffer(t *testing.T) {
	ctx := context.Background()
	sess := startTestSession(t, sessionDeps{classifier: &stubClassifier{}})

	// Fill the event channel without any reader; the stopped event will be
	// dropped by the non-blocking emit.
	for i := 0; i < eventBuffer+8; i++ {
		sess.OnFinalText("line of transcript")
	}

	title, err := sess.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done never closed after Stop with a full event buffer")
	}
	if got := sess.Title(); got != title {
		t.Errorf("Title = %q, want %q", got, title)
	}
}

func TestSessionWithoutStore(t *testing.T) {
	ctx := context.Background()
	cls := &stubClassifier{}
	sess := startTestSession(t, sessionDeps{classifier: cls})

	sess.OnFinalText("no persistence configured")
	sess.onTick(ctx)
	waitEvent(t, sess, EventNode)

	if sess.ConversationID() != "" {
		t.Errorf("conversation id = %q without a store", sess.ConversationID())
	}
	if _, err := sess.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
