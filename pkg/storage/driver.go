// Package storage defines the persistence contract for conversation records.
package storage

import (
	"context"

	"github.com/quillhealthco/keepsake/pkg/memory"
)

// RecordStore is the read/write interface over persisted conversation turns,
// summaries, and pins. Writes are append-only and keyed by conversation id;
// reads are ordered by creation time. Deleting a conversation cascades to all
// of its records.
type RecordStore interface {
	// SaveTurn appends a turn to its conversation.
	SaveTurn(ctx context.Context, turn *memory.Turn) error

	// RecentTurns returns the most recent limit turns of a conversation in
	// chronological order (oldest first). Fewer turns may be returned when
	// the conversation is short.
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]memory.Turn, error)

	// CountTurns returns the number of turns in a conversation.
	CountTurns(ctx context.Context, conversationID string) (int, error)

	// UnsummarizedTurns returns, oldest first, up to limit turns not yet
	// covered by a summary. Because MarkSummarized always covers the oldest
	// block, the result is a contiguous range.
	UnsummarizedTurns(ctx context.Context, conversationID string, limit int) ([]memory.Turn, error)

	// CountUnsummarized returns the number of turns not yet covered by a summary.
	CountUnsummarized(ctx context.Context, conversationID string) (int, error)

	// MarkSummarized records that the given turns are covered by a summary,
	// excluding them from future summarization passes. Covered ranges never
	// overlap because marking is monotonic.
	MarkSummarized(ctx context.Context, conversationID string, turnIDs []string) error

	// SaveSummary appends a summary to its conversation.
	SaveSummary(ctx context.Context, summary *memory.Summary) error

	// RecentSummaries returns the most recent limit summaries in
	// chronological order (oldest first).
	RecentSummaries(ctx context.Context, conversationID string, limit int) ([]memory.Summary, error)

	// SavePin appends a pin to its conversation.
	SavePin(ctx context.Context, pin *memory.Pin) error

	// TopPins returns up to limit pins ranked by importance descending,
	// then urgency descending, then recency descending.
	TopPins(ctx context.Context, conversationID string, limit int) ([]memory.Pin, error)

	// DeleteConversation removes all turns, summaries, and pins for a conversation.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Close releases driver resources.
	Close() error
}
