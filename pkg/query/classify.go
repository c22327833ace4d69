// Package query inspects raw user text before any model call. The classifier
// routes ground-truth lookups (medications, appointments, journal) away from
// the generative path, and the resolver decides which subject a query refers
// to. Answers for lookup categories are formatted deterministically — numeric
// and date facts are never phrased by the model.
package query

import "regexp"

// Category is the closed set of query classifications.
type Category string

const (
	CategoryGeneral      Category = "general"
	CategoryMedications  Category = "medications"
	CategoryAppointments Category = "appointments"
	CategoryJournal      Category = "journal"
)

// IsLookup reports whether the category is answered from structured storage
// instead of model generation.
func (c Category) IsLookup() bool {
	return c != CategoryGeneral
}

// ruleGroup is one independently evaluated classification rule. Groups are
// checked in order; the first match wins.
type ruleGroup struct {
	category Category
	patterns []*regexp.Regexp
}

var ruleGroups = []ruleGroup{
	{
		category: CategoryMedications,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(medications?|meds|pills?|prescriptions?)\b`),
			regexp.MustCompile(`(?i)\b(what|which).{0,40}\b(taking|prescribed)\b`),
			regexp.MustCompile(`(?i)\bdos(e|age)\b`),
		},
	},
	{
		category: CategoryAppointments,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bappointments?\b`),
			regexp.MustCompile(`(?i)\bwhen.{0,40}\b(see|seeing|visit)\b.{0,40}\b(doctor|therapist|psychiatrist)\b`),
			regexp.MustCompile(`(?i)\bnext (visit|session)\b`),
		},
	},
	{
		category: CategoryJournal,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bjournal\b`),
			regexp.MustCompile(`(?i)\b(diary|log) entr(y|ies)\b`),
			regexp.MustCompile(`(?i)\bwhat did (i|we) (write|note|log)\b`),
		},
	},
}

// Classify determines the category of a raw user query. Rule groups are
// independent; the first matching group wins and CategoryGeneral is the
// default.
func Classify(text string) Category {
	for _, group := range ruleGroups {
		for _, p := range group.patterns {
			if p.MatchString(text) {
				return group.category
			}
		}
	}
	return CategoryGeneral
}
