// Package memory defines the core records of the keepsake hybrid memory
// engine: conversation turns, compressed summaries, pinned facts, and the
// bounded MemoryContext aggregate handed to the model-invocation boundary.
//
// Records are plain structured data. Persistence is a storage-driver concern
// (pkg/storage); assembly and compression live in the assembler and
// summarizer subpackages.
package memory

import (
	"fmt"
	"time"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Default importance constants. Pins and summaries default above an average
// turn so they survive budget truncation longer.
const (
	BaselineImportance = 0.5
	SummaryImportance  = 0.7
	PinImportance      = 0.8
)

// Urgency orders pins by how quickly a human should see them.
type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyHigh
	UrgencyCritical
)

// String returns the lowercase label for the urgency level.
func (u Urgency) String() string {
	switch u {
	case UrgencyCritical:
		return "critical"
	case UrgencyHigh:
		return "high"
	default:
		return "normal"
	}
}

// ParseUrgency parses a lowercase urgency label.
func ParseUrgency(s string) (Urgency, error) {
	switch s {
	case "normal", "":
		return UrgencyNormal, nil
	case "high":
		return UrgencyHigh, nil
	case "critical":
		return UrgencyCritical, nil
	default:
		return UrgencyNormal, fmt.Errorf("unknown urgency %q", s)
	}
}

// Turn is a single conversational message. Turns within a conversation are
// totally ordered by CreatedAt. Importance is computed once at write time and
// never mutated.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Text           string    `json:"text"`
	Model          string    `json:"model,omitempty"` // assistant turns only
	TokenEstimate  int       `json:"token_estimate,omitempty"`
	Importance     float64   `json:"importance"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary is a compressed representation of a contiguous block of turns.
// Covered-turn ranges never overlap within a conversation.
type Summary struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	TurnCount      int       `json:"turn_count"`
	FirstTurnID    string    `json:"first_turn_id"`
	LastTurnID     string    `json:"last_turn_id"`
	Importance     float64   `json:"importance"`
	CreatedAt      time.Time `json:"created_at"`
}

// Pin is a short, explicitly important fact extracted from a turn or inserted
// directly. Pins are immutable; superseding information is a new pin.
type Pin struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SubjectID      string    `json:"subject_id,omitempty"`
	Text           string    `json:"text"`
	SourceTurnID   string    `json:"source_turn_id"`
	Category       string    `json:"category,omitempty"` // e.g. "medication-change", "warning-sign"
	Urgency        Urgency   `json:"urgency"`
	Importance     float64   `json:"importance"`
	CreatedAt      time.Time `json:"created_at"`
}

// MemoryContext is the ephemeral, per-request aggregate handed to the
// model-invocation boundary. RecentTurns are ordered most-relevant-last,
// pins by rank, summaries oldest first. Not persisted; built fresh (or served
// from cache) on every turn.
type MemoryContext struct {
	ConversationID string    `json:"conversation_id"`
	RecentTurns    []Turn    `json:"recent_turns"`
	Pins           []Pin     `json:"pins"`
	Summaries      []Summary `json:"summaries"`
	TokenEstimate  int       `json:"token_estimate"`
}
