// Package summarizer compresses old conversation turns into summaries once a
// conversation outgrows its rolling buffer. Compression is model-assisted but
// never model-dependent: a rejected or failed model summary falls back to a
// deterministic synthesizer, so a summarization pass always lands a summary.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillhealthco/keepsake/pkg/care"
	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/memory/cache"
	"github.com/quillhealthco/keepsake/pkg/storage"
)

// DefaultThreshold is the number of unsummarized turns that triggers a
// compression pass. A pass covers at most this many turns, oldest first.
const DefaultThreshold = 8

// summaryMaxTokens caps the model completion for a compression call.
const summaryMaxTokens = 300

const systemPrompt = "You compress conversation transcripts for a care " +
	"assistant's long-term memory. Reply with only the summary text: two or " +
	"three plain sentences covering the concrete facts, concerns, and " +
	"decisions. No preamble, no formatting, no commentary."

// Summarizer runs threshold-triggered compression passes over a
// conversation's unsummarized turns.
type Summarizer struct {
	store    storage.RecordStore
	cache    *cache.Cache
	invoker  llm.Invoker
	sessions care.Sessions
	log      *slog.Logger

	threshold int
	rules     Rules

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option adjusts summarizer behavior.
type Option func(*Summarizer)

// WithThreshold sets the unsummarized-turn count that triggers a pass.
func WithThreshold(n int) Option {
	return func(s *Summarizer) {
		if n > 1 {
			s.threshold = n
		}
	}
}

// WithRules overrides the summary validation rules.
func WithRules(r Rules) Option {
	return func(s *Summarizer) { s.rules = r }
}

// WithSessions lets the summarizer route compression to the conversation's
// preferred model when one is recorded.
func WithSessions(sessions care.Sessions) Option {
	return func(s *Summarizer) { s.sessions = sessions }
}

// New creates a Summarizer. A nil invoker skips the model entirely and every
// pass uses the deterministic fallback.
func New(store storage.RecordStore, c *cache.Cache, invoker llm.Invoker, log *slog.Logger, opts ...Option) *Summarizer {
	s := &Summarizer{
		store:     store,
		cache:     c,
		invoker:   invoker,
		log:       log,
		threshold: DefaultThreshold,
		rules:     DefaultRules(),
		inFlight:  make(map[string]struct{}),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Job is one in-flight summarization pass. Done is closed when the pass has
// finished; Summary and Err are valid only after that.
type Job struct {
	ConversationID string

	done     chan struct{}
	summary  *memory.Summary
	fellBack bool
	err      error
}

// Done returns a channel closed when the pass completes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Summary returns the persisted summary, or nil when the pass failed before
// persisting. Valid after Done is closed.
func (j *Job) Summary() *memory.Summary { return j.summary }

// FellBack reports whether the deterministic fallback produced the summary
// text. Valid after Done is closed.
func (j *Job) FellBack() bool { return j.fellBack }

// Err returns the persistence error of the pass, if any. Model failures are
// not errors; they are absorbed by the fallback. Valid after Done is closed.
func (j *Job) Err() error { return j.err }

// MaybeSummarize starts a compression pass when the conversation has at least
// threshold unsummarized turns. It returns nil with no error when the
// threshold is not met. The pass runs asynchronously and is detached from the
// caller's cancellation: a summary is a derived record, and finishing an
// already-started pass is always safe.
func (s *Summarizer) MaybeSummarize(ctx context.Context, conversationID string) (*Job, error) {
	// One pass per conversation at a time, or two passes could cover
	// overlapping turn blocks.
	s.mu.Lock()
	if _, running := s.inFlight[conversationID]; running {
		s.mu.Unlock()
		return nil, nil
	}
	s.inFlight[conversationID] = struct{}{}
	s.mu.Unlock()

	started := false
	defer func() {
		if !started {
			s.release(conversationID)
		}
	}()

	count, err := s.store.CountUnsummarized(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("count unsummarized turns: %w", err)
	}
	if count < s.threshold {
		return nil, nil
	}

	turns, err := s.store.UnsummarizedTurns(ctx, conversationID, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("load unsummarized turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, nil
	}

	job := &Job{ConversationID: conversationID, done: make(chan struct{})}
	started = true
	go s.run(context.WithoutCancel(ctx), job, turns)
	return job, nil
}

func (s *Summarizer) release(conversationID string) {
	s.mu.Lock()
	delete(s.inFlight, conversationID)
	s.mu.Unlock()
}

func (s *Summarizer) run(ctx context.Context, job *Job, turns []memory.Turn) {
	defer close(job.done)
	defer s.release(job.ConversationID)

	source := transcript(turns)
	text, fellBack := s.compress(ctx, job.ConversationID, turns, source)

	summary := &memory.Summary{
		ID:             uuid.NewString(),
		ConversationID: job.ConversationID,
		Text:           text,
		TurnCount:      len(turns),
		FirstTurnID:    turns[0].ID,
		LastTurnID:     turns[len(turns)-1].ID,
		Importance:     memory.SummaryImportance,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.SaveSummary(ctx, summary); err != nil {
		job.err = fmt.Errorf("save summary: %w", err)
		s.log.Error("summarization pass failed", "conversation_id", job.ConversationID, "error", err)
		return
	}

	turnIDs := make([]string, len(turns))
	for i, t := range turns {
		turnIDs[i] = t.ID
	}
	if err := s.store.MarkSummarized(ctx, job.ConversationID, turnIDs); err != nil {
		job.err = fmt.Errorf("mark turns summarized: %w", err)
		s.log.Error("summarization pass failed", "conversation_id", job.ConversationID, "error", err)
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(job.ConversationID)
	}

	job.summary = summary
	job.fellBack = fellBack
	s.log.Debug("summarized turn block",
		"conversation_id", job.ConversationID,
		"turns", len(turns),
		"fallback", fellBack)
}

// compress produces the summary text, preferring the model and falling back
// to the deterministic synthesizer on any invocation failure or validation
// rejection.
func (s *Summarizer) compress(ctx context.Context, conversationID string, turns []memory.Turn, source string) (string, bool) {
	if s.invoker == nil {
		return FallbackSummary(turns), true
	}

	settings := llm.Settings{MaxTokens: summaryMaxTokens}
	if s.sessions != nil {
		if model, err := s.sessions.PreferredModel(ctx, conversationID); err == nil {
			settings.Model = model
		}
	}

	result, err := s.invoker.Invoke(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: source},
	}, settings)
	if err != nil {
		s.log.Warn("compression call failed, using fallback",
			"conversation_id", conversationID,
			"transient", llm.IsTransient(err),
			"error", err)
		return FallbackSummary(turns), true
	}

	text := strings.TrimSpace(result.Text)
	if reason := s.rules.Check(text, source); reason != nil {
		s.log.Warn("model summary rejected, using fallback",
			"conversation_id", conversationID,
			"reason", reason)
		return FallbackSummary(turns), true
	}
	return text, false
}

// transcript renders the turn block as the compression source text.
func transcript(turns []memory.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
