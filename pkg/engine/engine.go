// Package engine orchestrates a single conversational turn: classification,
// subject resolution, context assembly, model invocation, persistence, and
// summarization scheduling. Turns within one conversation run strictly
// sequentially.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillhealthco/keepsake/pkg/care"
	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/memory/assembler"
	"github.com/quillhealthco/keepsake/pkg/memory/cache"
	"github.com/quillhealthco/keepsake/pkg/memory/summarizer"
	"github.com/quillhealthco/keepsake/pkg/query"
	"github.com/quillhealthco/keepsake/pkg/storage"
)

// DefaultTokenBudget bounds the assembled memory context handed to the model.
const DefaultTokenBudget = 2048

// journalLookupLimit is how many recent journal entries a lookup answer includes.
const journalLookupLimit = 5

// clarificationReply is sent when a fact lookup cannot determine its subject.
// Guessing a person on a records question is never acceptable.
const clarificationReply = "I'm not sure whose records you're asking about. " +
	"Could you tell me which person you mean?"

// Reply is the outcome of one processed turn.
type Reply struct {
	ConversationID string
	Text           string
	Category       query.Category
	Model          string // empty for deterministic answers

	// NeedsClarification is set when a fact lookup could not resolve its
	// subject and the reply asks the user to disambiguate.
	NeedsClarification bool

	// Summarization is the compression pass scheduled by this turn, nil when
	// none started. Callers may wait on its Done channel or ignore it.
	Summarization *summarizer.Job
}

// Params collects the engine's collaborators.
type Params struct {
	Store      storage.RecordStore
	Cache      *cache.Cache
	Assembler  *assembler.Assembler
	Summarizer *summarizer.Summarizer
	Invoker    llm.Invoker
	Care       care.Provider
	Sessions   care.Sessions
	Log        *slog.Logger

	// Model overrides the provider's default for primary generation.
	Model string

	// TokenBudget bounds the assembled context. Zero means DefaultTokenBudget.
	TokenBudget int
}

// Engine processes conversation turns.
type Engine struct {
	store       storage.RecordStore
	cache       *cache.Cache
	assembler   *assembler.Assembler
	summarizer  *summarizer.Summarizer
	invoker     llm.Invoker
	care        care.Provider
	sessions    care.Sessions
	resolver    *query.Resolver
	log         *slog.Logger
	model       string
	tokenBudget int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Engine from its collaborators.
func New(p Params) *Engine {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	budget := p.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &Engine{
		store:       p.Store,
		cache:       p.Cache,
		assembler:   p.Assembler,
		summarizer:  p.Summarizer,
		invoker:     p.Invoker,
		care:        p.Care,
		sessions:    p.Sessions,
		resolver:    query.NewResolver(p.Care, p.Sessions),
		log:         log,
		model:       p.Model,
		tokenBudget: budget,
		locks:       make(map[string]*sync.Mutex),
	}
}

// ProcessTurn handles one inbound user message and returns the reply. Turns
// for the same conversation are serialized; turns for different conversations
// proceed independently.
func (e *Engine) ProcessTurn(ctx context.Context, conversationID, text string) (*Reply, error) {
	if text == "" {
		return nil, errors.New("empty turn text")
	}

	lock := e.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	category := query.Classify(text)
	if category.IsLookup() {
		return e.lookupTurn(ctx, conversationID, text, category)
	}
	return e.generalTurn(ctx, conversationID, text)
}

// lookupTurn answers a ground-truth query from structured records. The answer
// text is produced by deterministic formatters, never by the model.
func (e *Engine) lookupTurn(ctx context.Context, conversationID, text string, category query.Category) (*Reply, error) {
	subjectID, err := e.resolver.ResolveSubject(ctx, text, conversationID)
	if errors.Is(err, query.ErrNeedsClarification) {
		if err := e.persistExchange(ctx, conversationID, text, clarificationReply, ""); err != nil {
			return nil, err
		}
		return &Reply{
			ConversationID:     conversationID,
			Text:               clarificationReply,
			Category:           category,
			NeedsClarification: true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve subject: %w", err)
	}

	subject, err := e.subjectByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	answer, err := e.lookupAnswer(ctx, subject, category)
	if err != nil {
		return nil, err
	}

	if err := e.persistExchange(ctx, conversationID, text, answer, ""); err != nil {
		return nil, err
	}

	e.log.Debug("answered lookup turn",
		"conversation_id", conversationID,
		"category", string(category),
		"subject_id", subjectID)

	return &Reply{
		ConversationID: conversationID,
		Text:           answer,
		Category:       category,
	}, nil
}

func (e *Engine) lookupAnswer(ctx context.Context, subject care.Subject, category query.Category) (string, error) {
	switch category {
	case query.CategoryMedications:
		meds, err := e.care.Medications(ctx, subject.ID)
		if err != nil {
			return "", fmt.Errorf("fetch medications: %w", err)
		}
		return query.FormatMedications(subject, meds), nil
	case query.CategoryAppointments:
		appts, err := e.care.Appointments(ctx, subject.ID)
		if err != nil {
			return "", fmt.Errorf("fetch appointments: %w", err)
		}
		return query.FormatAppointments(subject, appts), nil
	case query.CategoryJournal:
		entries, err := e.care.JournalEntries(ctx, subject.ID, journalLookupLimit)
		if err != nil {
			return "", fmt.Errorf("fetch journal entries: %w", err)
		}
		return query.FormatJournal(subject, entries), nil
	default:
		return "", fmt.Errorf("category %q is not a lookup", category)
	}
}

// generalTurn runs the generative path. The memory context is built over
// persisted history only, before the inbound turn is written, so the current
// message appears exactly once in the model payload. Nothing is persisted
// when the model call fails, leaving the turn cleanly retryable.
func (e *Engine) generalTurn(ctx context.Context, conversationID, text string) (*Reply, error) {
	mc, err := e.assembler.BuildContext(ctx, conversationID, e.tokenBudget)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	domain := e.domainContext(ctx, conversationID)
	messages := buildMessages(mc, domain, text)

	result, err := e.invoker.Invoke(ctx, messages, llm.Settings{Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	if err := e.persistExchange(ctx, conversationID, text, result.Text, result.Model); err != nil {
		return nil, err
	}

	job, err := e.summarizer.MaybeSummarize(ctx, conversationID)
	if err != nil {
		// The reply already succeeded; a failed scheduling attempt only
		// delays compression until the next turn.
		e.log.Warn("could not schedule summarization", "conversation_id", conversationID, "error", err)
		job = nil
	}

	return &Reply{
		ConversationID: conversationID,
		Text:           result.Text,
		Category:       query.CategoryGeneral,
		Model:          result.Model,
		Summarization:  job,
	}, nil
}

// persistExchange writes the user turn and its reply, then invalidates the
// conversation's cache entries so the next context build sees both.
func (e *Engine) persistExchange(ctx context.Context, conversationID, userText, replyText, model string) error {
	now := time.Now().UTC()

	userTurn := &memory.Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           memory.RoleUser,
		Text:           userText,
		TokenEstimate:  memory.EstimateTokens(userText),
		Importance:     memory.ScoreImportance(memory.RoleUser, userText),
		CreatedAt:      now,
	}
	if err := e.store.SaveTurn(ctx, userTurn); err != nil {
		return fmt.Errorf("save user turn: %w", err)
	}

	replyTurn := &memory.Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           memory.RoleAssistant,
		Text:           replyText,
		Model:          model,
		TokenEstimate:  memory.EstimateTokens(replyText),
		Importance:     memory.ScoreImportance(memory.RoleAssistant, replyText),
		CreatedAt:      now.Add(time.Microsecond),
	}
	if err := e.store.SaveTurn(ctx, replyTurn); err != nil {
		return fmt.Errorf("save assistant turn: %w", err)
	}

	if e.cache != nil {
		e.cache.Invalidate(conversationID)
	}
	return nil
}

// domainContext renders the default subject's current records as opaque text
// for the model payload. A conversation without a default subject, or a
// records fetch failure, yields no domain context rather than a failed turn.
func (e *Engine) domainContext(ctx context.Context, conversationID string) string {
	subjectID, err := e.sessions.DefaultSubject(ctx, conversationID)
	if err != nil || subjectID == "" {
		return ""
	}
	subject, err := e.subjectByID(ctx, subjectID)
	if err != nil {
		return ""
	}

	meds, err := e.care.Medications(ctx, subject.ID)
	if err != nil {
		e.log.Warn("domain context unavailable", "conversation_id", conversationID, "error", err)
		return ""
	}
	appts, err := e.care.Appointments(ctx, subject.ID)
	if err != nil {
		e.log.Warn("domain context unavailable", "conversation_id", conversationID, "error", err)
		return ""
	}

	return query.FormatMedications(subject, meds) + "\n\n" + query.FormatAppointments(subject, appts)
}

func (e *Engine) subjectByID(ctx context.Context, subjectID string) (care.Subject, error) {
	subjects, err := e.care.Subjects(ctx)
	if err != nil {
		return care.Subject{}, fmt.Errorf("list subjects: %w", err)
	}
	for _, s := range subjects {
		if s.ID == subjectID {
			return s, nil
		}
	}
	return care.Subject{}, fmt.Errorf("unknown subject %q", subjectID)
}

func (e *Engine) conversationLock(conversationID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[conversationID] = lock
	}
	return lock
}
