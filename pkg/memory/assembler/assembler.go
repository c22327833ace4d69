// Package assembler builds the bounded MemoryContext handed to the model on
// each turn: the rolling buffer of recent turns, the top-ranked pins, and the
// most recent summaries, trimmed to a token budget by dropping the least
// valuable pieces first.
package assembler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/memory/cache"
	"github.com/quillhealthco/keepsake/pkg/storage"
)

// Defaults for context composition. The truncation floor is the number of
// most recent turns that survive any budget.
const (
	DefaultRecentTurns   = 10
	DefaultSummaryCount  = 3
	DefaultPinLimit      = 20
	DefaultTruncateFloor = 3
)

// Cache sub-keys. One entry per record kind so a hit on one kind does not
// mask a miss on another.
const (
	subKeyTurns     = "recent-turns"
	subKeySummaries = "summaries"
	subKeyPins      = "pins"
)

// Assembler composes MemoryContext values from the record store, fronted by
// the per-conversation cache.
type Assembler struct {
	store storage.RecordStore
	cache *cache.Cache
	log   *slog.Logger

	recentTurns   int
	summaryCount  int
	pinLimit      int
	truncateFloor int
}

// Option adjusts assembler composition parameters.
type Option func(*Assembler)

// WithRecentTurns sets the rolling buffer size.
func WithRecentTurns(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.recentTurns = n
		}
	}
}

// WithSummaryCount sets how many recent summaries are included.
func WithSummaryCount(n int) Option {
	return func(a *Assembler) {
		if n >= 0 {
			a.summaryCount = n
		}
	}
}

// WithPinLimit sets how many top-ranked pins are fetched.
func WithPinLimit(n int) Option {
	return func(a *Assembler) {
		if n >= 0 {
			a.pinLimit = n
		}
	}
}

// WithTruncateFloor sets the number of most recent turns that are never
// dropped by budget truncation.
func WithTruncateFloor(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.truncateFloor = n
		}
	}
}

// New creates an Assembler over the store and cache. A nil cache disables
// read-through caching; every build then reads the store directly.
func New(store storage.RecordStore, c *cache.Cache, log *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		store:         store,
		cache:         c,
		log:           log,
		recentTurns:   DefaultRecentTurns,
		summaryCount:  DefaultSummaryCount,
		pinLimit:      DefaultPinLimit,
		truncateFloor: DefaultTruncateFloor,
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildContext assembles the memory context for the next model call. It
// operates on persisted history only, so callers must invoke it before
// writing the inbound user turn. When the assembled context exceeds
// tokenBudget it is truncated deterministically; over-budget input is never
// an error. A non-positive tokenBudget means unbounded.
func (a *Assembler) BuildContext(ctx context.Context, conversationID string, tokenBudget int) (*memory.MemoryContext, error) {
	turns, err := a.loadTurns(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	pins, err := a.loadPins(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load pins: %w", err)
	}
	summaries, err := a.loadSummaries(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	mc := &memory.MemoryContext{
		ConversationID: conversationID,
		RecentTurns:    turns,
		Pins:           pins,
		Summaries:      summaries,
	}
	mc.TokenEstimate = memory.EstimateContextTokens(mc)

	if tokenBudget > 0 && mc.TokenEstimate > tokenBudget {
		before := mc.TokenEstimate
		a.truncate(mc, tokenBudget)
		a.log.Debug("truncated memory context",
			"conversation_id", conversationID,
			"budget", tokenBudget,
			"tokens_before", before,
			"tokens_after", mc.TokenEstimate)
	}
	return mc, nil
}

func (a *Assembler) loadTurns(ctx context.Context, conversationID string) ([]memory.Turn, error) {
	if a.cache != nil {
		if v, ok := a.cache.Get(conversationID, subKeyTurns); ok {
			if turns, ok := v.([]memory.Turn); ok {
				return cloneSlice(turns), nil
			}
		}
	}
	turns, err := a.store.RecentTurns(ctx, conversationID, a.recentTurns)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Put(conversationID, subKeyTurns, cloneSlice(turns))
	}
	return turns, nil
}

func (a *Assembler) loadPins(ctx context.Context, conversationID string) ([]memory.Pin, error) {
	if a.pinLimit == 0 {
		return nil, nil
	}
	if a.cache != nil {
		if v, ok := a.cache.Get(conversationID, subKeyPins); ok {
			if pins, ok := v.([]memory.Pin); ok {
				return cloneSlice(pins), nil
			}
		}
	}
	pins, err := a.store.TopPins(ctx, conversationID, a.pinLimit)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Put(conversationID, subKeyPins, cloneSlice(pins))
	}
	return pins, nil
}

func (a *Assembler) loadSummaries(ctx context.Context, conversationID string) ([]memory.Summary, error) {
	if a.summaryCount == 0 {
		return nil, nil
	}
	if a.cache != nil {
		if v, ok := a.cache.Get(conversationID, subKeySummaries); ok {
			if summaries, ok := v.([]memory.Summary); ok {
				return cloneSlice(summaries), nil
			}
		}
	}
	summaries, err := a.store.RecentSummaries(ctx, conversationID, a.summaryCount)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Put(conversationID, subKeySummaries, cloneSlice(summaries))
	}
	return summaries, nil
}

// truncate drops content until the context fits the budget, in fixed order:
// lowest-importance pins, then oldest summaries, then oldest turns down to
// the floor of most recent turns. The floor always survives, even when it
// alone exceeds the budget.
func (a *Assembler) truncate(mc *memory.MemoryContext, tokenBudget int) {
	for mc.TokenEstimate > tokenBudget && len(mc.Pins) > 0 {
		idx := lowestImportancePin(mc.Pins)
		mc.TokenEstimate -= memory.EstimateTokens(mc.Pins[idx].Text)
		mc.Pins = append(mc.Pins[:idx], mc.Pins[idx+1:]...)
	}
	for mc.TokenEstimate > tokenBudget && len(mc.Summaries) > 0 {
		mc.TokenEstimate -= memory.EstimateTokens(mc.Summaries[0].Text)
		mc.Summaries = mc.Summaries[1:]
	}
	for mc.TokenEstimate > tokenBudget && len(mc.RecentTurns) > a.truncateFloor {
		mc.TokenEstimate -= memory.EstimateTokens(mc.RecentTurns[0].Text)
		mc.RecentTurns = mc.RecentTurns[1:]
	}
}

// lowestImportancePin returns the index of the pin to drop next. Pins arrive
// ranked best-first, so among equal importance the last (lowest-ranked) one
// goes.
func lowestImportancePin(pins []memory.Pin) int {
	idx := len(pins) - 1
	for i := len(pins) - 2; i >= 0; i-- {
		if pins[i].Importance < pins[idx].Importance {
			idx = i
		}
	}
	return idx
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
