package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/driftmap/driftmap/internal/brainwave"
	chunkbuf "github.com/driftmap/driftmap/internal/capture"
	"github.com/driftmap/driftmap/internal/classify"
	"github.com/driftmap/driftmap/internal/graph"
	"github.com/driftmap/driftmap/internal/layout"
	"github.com/driftmap/driftmap/internal/observe"
	"github.com/driftmap/driftmap/internal/sentiment"
	"github.com/driftmap/driftmap/internal/vocab"
	"github.com/driftmap/driftmap/pkg/capture"
	"github.com/driftmap/driftmap/pkg/provider/embeddings"
	"github.com/driftmap/driftmap/pkg/store"
)

// Event types delivered on a session's event channel.
const (
	EventInterim = "interim"
	EventPulse   = "pulse"
	EventNode    = "node"
	EventStopped = "stopped"
)

// Event is one server-to-client session event. Exactly one payload group is
// set, matching Type: Text for interim echoes, Node+Layout for appends, Title
// for the final stopped event. Pulse events carry no payload.
type Event struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Node   *graph.Node    `json:"node,omitempty"`
	Layout *layout.Result `json:"layout,omitempty"`
	Title  string         `json:"title,omitempty"`
}

// eventBuffer bounds the session event channel. A client that stops reading
// loses events rather than stalling the pipeline.
const eventBuffer = 64

// Classifier produces a verdict for a flushed chunk. The fallback flag
// reports that every configured backend failed and the deterministic
// heuristic answered. Matches *classify.Adapter.
type Classifier interface {
	Classify(ctx context.Context, chunk, previousSummary string) (classify.Result, bool)
}

// sessionDeps holds everything a session needs. The manager fills it once and
// hands a copy to each new session.
type sessionDeps struct {
	classifier Classifier
	corrector  *vocab.Corrector    // nil disables vocabulary correction
	capture    capture.Provider    // nil disables live capture; text is fed directly
	store      store.Store         // nil disables persistence
	embedder   embeddings.Provider // nil stores segments without embeddings
	sentiments *sentiment.Analyzer
	waves      *brainwave.Classifier
	metrics    *observe.Metrics

	captureCfg capture.Config
	interval   time.Duration
	now        func() time.Time
}

// Session is one live conversation-mapping session.
//
// The pipeline: capture transcripts arrive as interim (echoed to the client)
// or final text (vocabulary-corrected, then accumulated in the chunk buffer).
// Every interval the buffer is flushed; a non-empty chunk is classified and
// appended to the graph, and the node plus the recomputed layout go out as an
// event. Stop cancels the timer, discards any in-flight classification result,
// and finalizes exactly once.
type Session struct {
	owner string
	deps  sessionDeps

	buffer  *chunkbuf.Buffer
	builder *graph.Builder
	speech  capture.Session // nil when no capture provider is configured

	events chan Event
	done   chan struct{} // closed by Stop after the terminal event is emitted
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	title   string // final title, set before done is closed
	finals  []string

	convMu    sync.Mutex
	conv      store.Conversation
	finalized bool
}

func newSession(owner string, deps sessionDeps) *Session {
	if deps.interval <= 0 {
		deps.interval = chunkbuf.DefaultChunkInterval
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	if deps.metrics == nil {
		deps.metrics = observe.DefaultMetrics()
	}
	if deps.sentiments == nil {
		deps.sentiments = sentiment.New(nil)
	}
	if deps.waves == nil {
		deps.waves = brainwave.New(nil)
	}
	return &Session{
		owner:   owner,
		deps:    deps,
		buffer:  chunkbuf.NewBuffer(),
		builder: graph.NewBuilder(),
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
	}
}

// start opens the capture session and launches the flush timer. The session
// outlives the start request, so background work runs on its own context.
func (s *Session) start(ctx context.Context) error {
	sessionCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.deps.capture != nil {
		speech, err := s.deps.capture.StartSession(ctx, s.deps.captureCfg)
		if err != nil {
			cancel()
			return fmt.Errorf("app: start capture: %w", err)
		}
		s.speech = speech
		s.wg.Add(1)
		go s.drainCapture()
	}

	s.wg.Add(1)
	go s.tickLoop(sessionCtx)

	s.deps.metrics.ActiveSessions.Add(sessionCtx, 1)
	slog.Info("session started", "owner", s.owner, "interval", s.deps.interval)
	return nil
}

// Owner returns the owner id the session was started for.
func (s *Session) Owner() string { return s.owner }

// Events returns the server-to-client event stream. Events are dropped, not
// queued, when the client falls more than eventBuffer behind.
func (s *Session) Events() <-chan Event { return s.events }

// Done returns a channel closed once Stop has finished. The terminal stopped
// event itself can be dropped when the client is behind; Done always fires.
func (s *Session) Done() <-chan struct{} { return s.done }

// Title returns the final conversation title, empty until Done is closed.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// ConversationID returns the persisted conversation id, empty until the first
// node has been appended (conversations are created lazily) or when the
// session runs without a store.
func (s *Session) ConversationID() string {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	return s.conv.ID
}

// HandleTranscript feeds one recognised text frame into the session. When the
// capture backend accepts pushed text (the browser relay), the frame goes
// through it so every transcript flows down the same channel; otherwise it is
// handled directly.
func (s *Session) HandleTranscript(text string, final bool) {
	if p, ok := s.speech.(capture.TextPusher); ok {
		if err := p.Push(text, final); err != nil {
			slog.Debug("transcript push after close dropped", "owner", s.owner)
		}
		return
	}
	if final {
		s.OnFinalText(text)
	} else {
		s.OnInterimText(text)
	}
}

// SendAudio forwards raw audio to the capture backend.
func (s *Session) SendAudio(chunk []byte) error {
	if s.speech == nil {
		return capture.ErrAudioUnsupported
	}
	return s.speech.SendAudio(chunk)
}

// OnInterimText echoes a provisional transcript to the client. Interim text
// never reaches the chunk buffer.
func (s *Session) OnInterimText(text string) {
	s.emit(Event{Type: EventInterim, Text: text})
}

// OnFinalText runs vocabulary correction on a finalised transcript, appends
// it to the chunk buffer, and pulses the client.
func (s *Session) OnFinalText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if s.deps.corrector != nil {
		text, _ = s.deps.corrector.Apply(text)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.finals = append(s.finals, text)
	s.mu.Unlock()

	s.buffer.Append(text)
	s.emit(Event{Type: EventPulse})
}

// Stop ends the session: the flush timer is cancelled, capture is closed,
// any in-flight classification result is discarded, and the conversation is
// finalized exactly once with a title derived from the node labels. The
// returned title is also sent as the terminal stopped event.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", fmt.Errorf("app: session already stopped")
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	if s.speech != nil {
		if err := s.speech.Close(); err != nil {
			slog.Warn("capture close error", "owner", s.owner, "error", err)
		}
	}

	title := graph.TitleFromLabels(s.builder.Labels(), s.deps.now())
	if s.deps.store != nil {
		s.finalize(context.WithoutCancel(ctx), title)
	}

	s.deps.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
	s.emit(Event{Type: EventStopped, Title: title})
	close(s.done)
	slog.Info("session stopped", "owner", s.owner, "title", title, "nodes", s.builder.Len())
	return title, nil
}

// tickLoop flushes the chunk buffer on a fixed period until the session is
// stopped.
func (s *Session) tickLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.deps.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.onTick(ctx)
		}
	}
}

// onTick extracts the accumulated chunk and hands it to classification. An
// empty buffer means no work for this tick. Classification runs off the timer
// goroutine so a slow backend never delays the next flush.
func (s *Session) onTick(ctx context.Context) {
	chunk, ok := s.buffer.Flush()
	if !ok {
		return
	}
	s.deps.metrics.ChunkFlushes.Add(ctx, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processChunk(ctx, chunk)
	}()
}

// processChunk classifies one chunk and appends the resulting node. The
// append observes the latest sequence tail, and the graph builder serialises
// concurrent appends. Results arriving after Stop are discarded.
func (s *Session) processChunk(ctx context.Context, chunk string) {
	ctx, span := observe.StartStageSpan(ctx, "classify.chunk", s.owner)
	defer span.End()

	prev, _ := s.builder.LastLabel()

	start := time.Now()
	res, fallback := s.deps.classifier.Classify(ctx, chunk, prev)
	s.deps.metrics.RecordClassification(ctx, time.Since(start).Seconds(), fallback)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	node := s.builder.Append(res.Summary, res.OnTrack)
	s.mu.Unlock()

	lay := layout.Compute(s.builder.Nodes())
	s.deps.metrics.RecordNodeAppend(ctx, node.BranchLevel > 0)
	s.persist(ctx, node, chunk)
	s.emit(Event{Type: EventNode, Node: &node, Layout: &lay})
}

// persist writes the node and its source chunk to the store, fire-and-forget:
// failures are logged and counted, never propagated, and the in-memory graph
// stays authoritative.
func (s *Session) persist(ctx context.Context, node graph.Node, chunk string) {
	if s.deps.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	// The conversation is created synchronously so a stop right after the
	// first append still finds it and finalizes it. The writes proper are
	// fire-and-forget.
	conv, err := s.conversation(ctx)
	if err != nil {
		slog.Warn("conversation create failed", "owner", s.owner, "error", err)
		s.deps.metrics.RecordPersistError(ctx, "create_conversation")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		rec := store.NodeRecord{
			ID:             node.ID,
			ConversationID: conv.ID,
			Label:          node.Label,
			BranchLevel:    node.BranchLevel,
			SequenceIndex:  node.SequenceIndex,
		}
		if err := s.deps.store.AppendNode(ctx, rec); err != nil {
			slog.Warn("node persist failed", "conversation", conv.ID, "error", err)
			s.deps.metrics.RecordPersistError(ctx, "append_node")
		}

		s.persistSegment(ctx, conv.ID, chunk)
	}()
}

// persistSegment stores the chunk as a transcript segment, embedded when an
// embeddings provider is configured, then tags it with sentiment. Segments
// start out neutral, so a failed tagging pass leaves a usable record.
func (s *Session) persistSegment(ctx context.Context, conversationID, chunk string) {
	seg := store.Segment{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Text:           chunk,
		Sentiment:      sentiment.Neutral,
	}
	if s.deps.embedder != nil {
		vec, err := s.deps.embedder.Embed(ctx, chunk)
		if err != nil {
			slog.Warn("segment embedding failed", "conversation", conversationID, "error", err)
		} else {
			seg.Embedding = vec
		}
	}
	if err := s.deps.store.AppendSegment(ctx, seg); err != nil {
		slog.Warn("segment persist failed", "conversation", conversationID, "error", err)
		s.deps.metrics.RecordPersistError(ctx, "append_segment")
		return
	}

	start := time.Now()
	label, insight := s.deps.sentiments.Annotate(ctx, chunk)
	s.deps.metrics.InsightDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("kind", "segment")))
	if err := s.deps.store.UpdateSegmentSentiment(ctx, seg.ID, label, insight); err != nil {
		slog.Warn("segment tagging failed", "segment", seg.ID, "error", err)
		s.deps.metrics.RecordPersistError(ctx, "tag_segment")
	}
}

// conversation returns the persisted conversation, creating it with a
// provisional title on first use. Creation after finalize is refused; the
// conversation would end up orphaned with no title pass ever running.
func (s *Session) conversation(ctx context.Context) (store.Conversation, error) {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	if s.conv.ID != "" {
		return s.conv, nil
	}
	if s.finalized {
		return store.Conversation{}, fmt.Errorf("app: session already finalized")
	}
	conv, err := s.deps.store.CreateConversation(ctx, s.owner, graph.ProvisionalTitle(s.deps.now()))
	if err != nil {
		return store.Conversation{}, err
	}
	s.conv = conv
	return conv, nil
}

// finalize writes the final title and kicks off whole-transcript analysis.
// Nothing was persisted for sessions that never produced a node, so there is
// nothing to finalize.
func (s *Session) finalize(ctx context.Context, title string) {
	s.convMu.Lock()
	s.finalized = true
	conv := s.conv
	s.convMu.Unlock()
	if conv.ID == "" {
		return
	}

	if err := s.deps.store.FinalizeConversation(ctx, conv.ID, title); err != nil {
		slog.Warn("finalize failed", "conversation", conv.ID, "error", err)
		s.deps.metrics.RecordPersistError(ctx, "finalize")
	}

	s.mu.Lock()
	transcript := strings.Join(s.finals, " ")
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, span := observe.StartStageSpan(ctx, "session.finalize", s.owner)
		defer span.End()

		start := time.Now()
		mood := s.deps.sentiments.Analyze(ctx, transcript)
		band := s.deps.waves.Classify(ctx, transcript)
		s.deps.metrics.InsightDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("kind", "conversation")))

		if err := s.deps.store.SetInsights(ctx, conv.ID, mood, band); err != nil {
			slog.Warn("insights persist failed", "conversation", conv.ID, "error", err)
			s.deps.metrics.RecordPersistError(ctx, "set_insights")
		}
	}()
}

// drainCapture routes the capture stream into the pipeline until the backend
// closes it.
func (s *Session) drainCapture() {
	defer s.wg.Done()
	for t := range s.speech.Transcripts() {
		if t.Final {
			s.OnFinalText(t.Text)
		} else {
			s.OnInterimText(t.Text)
		}
	}
}

// emit sends an event without blocking; a full channel drops the event.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
