package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/quillhealthco/keepsake/pkg/care"
)

// Formatting layouts are fixed so the same records always produce the same
// text. These answers go to the user verbatim.
const (
	dateLayout = "Jan 2, 2006"
	timeLayout = "Mon, Jan 2, 2006 at 3:04 PM"
)

// FormatMedications renders a subject's medications as a deterministic
// plain-text answer.
func FormatMedications(subject care.Subject, meds []care.Medication) string {
	if len(meds) == 0 {
		return fmt.Sprintf("No medications on record for %s.", subject.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Medications for %s:\n", subject.Name)
	for _, m := range meds {
		fmt.Fprintf(&b, "- %s %s, %s (started %s", m.Name, m.Dosage, m.Schedule, m.StartedAt.Format(dateLayout))
		if m.StoppedAt != nil {
			fmt.Fprintf(&b, ", stopped %s", m.StoppedAt.Format(dateLayout))
		}
		b.WriteString(")")
		if m.Notes != "" {
			fmt.Fprintf(&b, " — %s", m.Notes)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAppointments renders a subject's appointments as a deterministic
// plain-text answer.
func FormatAppointments(subject care.Subject, appts []care.Appointment) string {
	if len(appts) == 0 {
		return fmt.Sprintf("No appointments on record for %s.", subject.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Appointments for %s:\n", subject.Name)
	for _, a := range appts {
		fmt.Fprintf(&b, "- %s with %s on %s", a.Title, a.Provider, a.At.Format(timeLayout))
		if a.Location != "" {
			fmt.Fprintf(&b, " (%s)", a.Location)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatJournal renders a subject's recent journal entries as a deterministic
// plain-text answer.
func FormatJournal(subject care.Subject, entries []care.JournalEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No journal entries on record for %s.", subject.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent journal entries for %s:\n", subject.Name)
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.At.Format(dateLayout), e.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTime is exposed for callers that need the same fixed layout.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}
