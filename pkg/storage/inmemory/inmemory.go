// Package inmemory provides an in-memory implementation of the
// storage.RecordStore interface. Useful for tests and local development;
// nothing survives process exit.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/quillhealthco/keepsake/pkg/memory"
)

// Driver implements storage.RecordStore using in-process data structures.
type Driver struct {
	mu sync.RWMutex

	// records are keyed by conversation id. Turn slices stay in append
	// order, which is chronological because turns within a conversation
	// are written strictly sequentially.
	turns      map[string][]memory.Turn
	summaries  map[string][]memory.Summary
	pins       map[string][]memory.Pin
	summarized map[string]map[string]bool // conversation id -> turn id set
}

// NewDriver creates a new in-memory record store.
func NewDriver() *Driver {
	return &Driver{
		turns:      make(map[string][]memory.Turn),
		summaries:  make(map[string][]memory.Summary),
		pins:       make(map[string][]memory.Pin),
		summarized: make(map[string]map[string]bool),
	}
}

// SaveTurn appends a turn to its conversation.
func (d *Driver) SaveTurn(_ context.Context, turn *memory.Turn) error {
	if turn == nil {
		return errors.New("cannot store nil turn")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.turns[turn.ConversationID] = append(d.turns[turn.ConversationID], *turn)
	return nil
}

// RecentTurns returns the last limit turns in chronological order.
func (d *Driver) RecentTurns(_ context.Context, conversationID string, limit int) ([]memory.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := d.turns[conversationID]
	start := len(all) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}

	result := make([]memory.Turn, len(all)-start)
	copy(result, all[start:])
	return result, nil
}

// CountTurns returns the number of turns in a conversation.
func (d *Driver) CountTurns(_ context.Context, conversationID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.turns[conversationID]), nil
}

// UnsummarizedTurns returns, oldest first, up to limit turns not yet covered
// by a summary.
func (d *Driver) UnsummarizedTurns(_ context.Context, conversationID string, limit int) ([]memory.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	covered := d.summarized[conversationID]

	var result []memory.Turn
	for _, turn := range d.turns[conversationID] {
		if covered[turn.ID] {
			continue
		}
		result = append(result, turn)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// CountUnsummarized returns the number of turns not yet covered by a summary.
func (d *Driver) CountUnsummarized(_ context.Context, conversationID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	covered := d.summarized[conversationID]

	count := 0
	for _, turn := range d.turns[conversationID] {
		if !covered[turn.ID] {
			count++
		}
	}
	return count, nil
}

// MarkSummarized records that the given turns are covered by a summary.
func (d *Driver) MarkSummarized(_ context.Context, conversationID string, turnIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	covered, ok := d.summarized[conversationID]
	if !ok {
		covered = make(map[string]bool)
		d.summarized[conversationID] = covered
	}
	for _, id := range turnIDs {
		covered[id] = true
	}
	return nil
}

// SaveSummary appends a summary to its conversation.
func (d *Driver) SaveSummary(_ context.Context, summary *memory.Summary) error {
	if summary == nil {
		return errors.New("cannot store nil summary")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.summaries[summary.ConversationID] = append(d.summaries[summary.ConversationID], *summary)
	return nil
}

// RecentSummaries returns the last limit summaries in chronological order.
func (d *Driver) RecentSummaries(_ context.Context, conversationID string, limit int) ([]memory.Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := d.summaries[conversationID]
	start := len(all) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}

	result := make([]memory.Summary, len(all)-start)
	copy(result, all[start:])
	return result, nil
}

// SavePin appends a pin to its conversation.
func (d *Driver) SavePin(_ context.Context, pin *memory.Pin) error {
	if pin == nil {
		return errors.New("cannot store nil pin")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pins[pin.ConversationID] = append(d.pins[pin.ConversationID], *pin)
	return nil
}

// TopPins returns up to limit pins ranked by importance descending, then
// urgency descending, then recency descending.
func (d *Driver) TopPins(_ context.Context, conversationID string, limit int) ([]memory.Pin, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := d.pins[conversationID]
	result := make([]memory.Pin, len(all))
	copy(result, all)

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Importance != result[j].Importance {
			return result[i].Importance > result[j].Importance
		}
		if result[i].Urgency != result[j].Urgency {
			return result[i].Urgency > result[j].Urgency
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteConversation removes all records for a conversation.
func (d *Driver) DeleteConversation(_ context.Context, conversationID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.turns, conversationID)
	delete(d.summaries, conversationID)
	delete(d.pins, conversationID)
	delete(d.summarized, conversationID)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
