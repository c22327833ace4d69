// Package care defines the read contracts the memory engine consumes from
// the surrounding care application: structured domain records (medications,
// appointments, journal entries) and per-conversation session metadata.
//
// The engine never assumes anything about how these records are stored; it
// formats them deterministically (pkg/query) or appends them to the model
// payload as opaque text.
package care

import (
	"context"
	"errors"
	"time"
)

// ErrNoSubject is returned when a conversation has no recorded default subject.
var ErrNoSubject = errors.New("no default subject for conversation")

// Subject is a person the care application tracks, e.g. a patient.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Medication is one active or past prescription for a subject.
type Medication struct {
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`    // e.g. "50mg"
	Schedule  string     `json:"schedule"`  // e.g. "once daily, morning"
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// Appointment is a scheduled visit for a subject.
type Appointment struct {
	Title    string    `json:"title"`
	Provider string    `json:"provider"` // clinician or facility name
	At       time.Time `json:"at"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// JournalEntry is one dated free-text note about a subject.
type JournalEntry struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Provider exposes structured ground-truth records for subjects. Facts served
// from here are formatted deterministically and never rephrased by the
// generative model.
type Provider interface {
	// Subjects lists all known subjects, used for explicit-name resolution.
	Subjects(ctx context.Context) ([]Subject, error)

	// Medications returns the subject's medications, current first.
	Medications(ctx context.Context, subjectID string) ([]Medication, error)

	// Appointments returns the subject's upcoming appointments, soonest first.
	Appointments(ctx context.Context, subjectID string) ([]Appointment, error)

	// JournalEntries returns the subject's most recent entries, newest first.
	JournalEntries(ctx context.Context, subjectID string, limit int) ([]JournalEntry, error)
}

// Sessions exposes per-conversation metadata recorded by the application.
type Sessions interface {
	// DefaultSubject returns the conversation's recorded default subject id,
	// or ErrNoSubject when none is set.
	DefaultSubject(ctx context.Context, conversationID string) (string, error)

	// PreferredModel returns the conversation's preferred model for
	// summarization routing ("" when unset). Locally hosted models are
	// preferred so compression stays offline-capable.
	PreferredModel(ctx context.Context, conversationID string) (string, error)
}
