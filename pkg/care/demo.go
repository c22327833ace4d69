package care

import "time"

// SeedDemo populates the directory with two subjects and sample records so a
// fresh local install can exercise fact lookups without a care application
// attached.
func (d *Directory) SeedDemo() {
	started := time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC)

	d.AddSubject(
		Subject{ID: "sub-ann", Name: "Ann"},
		[]Medication{
			{
				Name:      "Sertraline",
				Dosage:    "50mg",
				Schedule:  "once daily, morning",
				StartedAt: started,
			},
		},
		[]Appointment{
			{
				Title:    "Therapy session",
				Provider: "Dr. Okafor",
				At:       time.Date(2026, time.September, 3, 14, 30, 0, 0, time.UTC),
				Location: "Room 204",
			},
		},
		[]JournalEntry{
			{
				At:   time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC),
				Text: "Slept better after the evening walk.",
			},
		},
	)

	d.AddSubject(
		Subject{ID: "sub-robert", Name: "Robert"},
		[]Medication{
			{
				Name:      "Lisinopril",
				Dosage:    "10mg",
				Schedule:  "once daily, evening",
				StartedAt: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
			},
		},
		[]Appointment{
			{
				Title:    "Blood pressure check",
				Provider: "Nurse Patel",
				At:       time.Date(2026, time.September, 10, 9, 0, 0, 0, time.UTC),
			},
		},
		nil,
	)
}
