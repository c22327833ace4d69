package memory

import "strings"

// scoreGroup is one independently evaluated keyword group. Groups are
// additive and order-independent: each matching group contributes its weight
// once, regardless of how many of its keywords appear.
type scoreGroup struct {
	name     string
	weight   float64
	keywords []string
}

// scoreGroups is the static scoring table. Vocabulary is tuned for a
// care/therapy conversation domain: emotional and clinical language matters
// most, treatment and scheduling language next.
var scoreGroups = []scoreGroup{
	{
		name:   "emotional-clinical",
		weight: 0.3,
		keywords: []string{
			"anxious", "anxiety", "panic", "depressed", "depression",
			"suicidal", "self-harm", "crisis", "overwhelmed", "hopeless",
			"scared", "afraid", "grief", "trauma", "flashback", "relapse",
			"crying", "angry", "lonely", "pain", "hurt",
		},
	},
	{
		name:   "treatment-scheduling",
		weight: 0.2,
		keywords: []string{
			"medication", "meds", "dose", "dosage", "prescription",
			"appointment", "session", "therapist", "doctor", "psychiatrist",
			"refill", "side effect", "schedule", "reschedule", "cancel",
		},
	},
	{
		name:     "question",
		weight:   0.2,
		keywords: []string{"?", "how do", "what should", "can you", "why "},
	},
}

const (
	longTextChars       = 280
	longTextWeight      = 0.1
	assistantRoleWeight = 0.05
)

// ScoreImportance computes the salience of a turn's text in [0,1]. It is a
// pure function: deterministic, no I/O. The score starts at the baseline and
// accumulates one weight per matching keyword group, plus small increments
// for long text and assistant-authored turns, clamped to 1.0. Empty text
// yields the baseline only.
func ScoreImportance(role Role, text string) float64 {
	score := BaselineImportance
	if text == "" {
		return score
	}

	lower := strings.ToLower(text)
	for _, group := range scoreGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				score += group.weight
				break
			}
		}
	}

	if len(text) > longTextChars {
		score += longTextWeight
	}
	if role == RoleAssistant {
		score += assistantRoleWeight
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
