package care

import (
	"context"
	"sync"
)

// Directory is an in-memory Provider and Sessions implementation, used for
// local development and tests. The production application supplies its own
// implementations backed by its patient records.
type Directory struct {
	mu sync.RWMutex

	subjects     []Subject
	medications  map[string][]Medication
	appointments map[string][]Appointment
	journal      map[string][]JournalEntry

	defaultSubjects map[string]string // conversation id -> subject id
	preferredModels map[string]string // conversation id -> model name
}

// NewDirectory creates an empty in-memory directory.
func NewDirectory() *Directory {
	return &Directory{
		medications:     make(map[string][]Medication),
		appointments:    make(map[string][]Appointment),
		journal:         make(map[string][]JournalEntry),
		defaultSubjects: make(map[string]string),
		preferredModels: make(map[string]string),
	}
}

// AddSubject registers a subject with its records.
func (d *Directory) AddSubject(s Subject, meds []Medication, appts []Appointment, entries []JournalEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.subjects = append(d.subjects, s)
	d.medications[s.ID] = meds
	d.appointments[s.ID] = appts
	d.journal[s.ID] = entries
}

// SetDefaultSubject records the conversation's default subject.
func (d *Directory) SetDefaultSubject(conversationID, subjectID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.defaultSubjects[conversationID] = subjectID
}

// SetPreferredModel records the conversation's preferred model.
func (d *Directory) SetPreferredModel(conversationID, model string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.preferredModels[conversationID] = model
}

// Subjects lists all known subjects.
func (d *Directory) Subjects(_ context.Context) ([]Subject, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]Subject, len(d.subjects))
	copy(result, d.subjects)
	return result, nil
}

// Medications returns the subject's medications.
func (d *Directory) Medications(_ context.Context, subjectID string) ([]Medication, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	meds := d.medications[subjectID]
	result := make([]Medication, len(meds))
	copy(result, meds)
	return result, nil
}

// Appointments returns the subject's appointments.
func (d *Directory) Appointments(_ context.Context, subjectID string) ([]Appointment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	appts := d.appointments[subjectID]
	result := make([]Appointment, len(appts))
	copy(result, appts)
	return result, nil
}

// JournalEntries returns the subject's most recent entries.
func (d *Directory) JournalEntries(_ context.Context, subjectID string, limit int) ([]JournalEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := d.journal[subjectID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	result := make([]JournalEntry, len(entries))
	copy(result, entries)
	return result, nil
}

// DefaultSubject returns the conversation's recorded default subject.
func (d *Directory) DefaultSubject(_ context.Context, conversationID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.defaultSubjects[conversationID]
	if !ok || id == "" {
		return "", ErrNoSubject
	}
	return id, nil
}

// PreferredModel returns the conversation's preferred model, "" when unset.
func (d *Directory) PreferredModel(_ context.Context, conversationID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.preferredModels[conversationID], nil
}
