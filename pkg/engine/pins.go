package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillhealthco/keepsake/pkg/memory"
)

// defaultPinListLimit bounds ListTopPins when the caller passes no limit.
const defaultPinListLimit = 20

// PinOptions are the optional fields of a new pin. Zero values mean defaults:
// no subject, no category, normal urgency, importance memory.PinImportance.
type PinOptions struct {
	SubjectID  string
	Category   string
	Urgency    memory.Urgency
	Importance float64
}

// CreatePin records an explicitly important fact. Pins are immutable;
// superseding information is recorded as a new pin rather than an update.
func (e *Engine) CreatePin(ctx context.Context, conversationID, text, sourceTurnID string, opts PinOptions) (*memory.Pin, error) {
	if text == "" {
		return nil, errors.New("empty pin text")
	}

	importance := opts.Importance
	switch {
	case importance == 0:
		importance = memory.PinImportance
	case importance < 0:
		importance = 0
	case importance > 1:
		importance = 1
	}

	pin := &memory.Pin{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SubjectID:      opts.SubjectID,
		Text:           text,
		SourceTurnID:   sourceTurnID,
		Category:       opts.Category,
		Urgency:        opts.Urgency,
		Importance:     importance,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.store.SavePin(ctx, pin); err != nil {
		return nil, fmt.Errorf("save pin: %w", err)
	}

	if e.cache != nil {
		e.cache.Invalidate(conversationID)
	}
	return pin, nil
}

// ListTopPins returns the conversation's pins ranked by importance, urgency,
// then recency. A non-positive limit uses the default.
func (e *Engine) ListTopPins(ctx context.Context, conversationID string, limit int) ([]memory.Pin, error) {
	if limit <= 0 {
		limit = defaultPinListLimit
	}
	pins, err := e.store.TopPins(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	return pins, nil
}
