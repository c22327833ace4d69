package summarizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quillhealthco/keepsake/pkg/memory"
)

// maxFallbackTopics bounds the topic tags in a fallback summary.
const maxFallbackTopics = 3

// fallbackTopic is one recognizable conversation theme. Topics are checked in
// fixed order so the fallback text is deterministic for the same turns.
type fallbackTopic struct {
	tag     string
	pattern *regexp.Regexp
}

var fallbackTopics = []fallbackTopic{
	{"medication", regexp.MustCompile(`(?i)\b(medications?|meds|pills?|dos(e|age)|prescriptions?)\b`)},
	{"sleep", regexp.MustCompile(`(?i)\b(sleep|sleeping|slept|insomnia|nightmares?|tired)\b`)},
	{"mood", regexp.MustCompile(`(?i)\b(mood|anxious|anxiety|depress(ed|ion)|panic|stress(ed)?|overwhelmed)\b`)},
	{"appointments", regexp.MustCompile(`(?i)\b(appointments?|doctor|therapist|psychiatrist|session|clinic)\b`)},
	{"pain", regexp.MustCompile(`(?i)\b(pain|ache|aching|headaches?|migraines?)\b`)},
	{"eating", regexp.MustCompile(`(?i)\b(eat(ing)?|appetite|meals?|food)\b`)},
	{"family", regexp.MustCompile(`(?i)\b(family|mother|father|mom|dad|sister|brother|spouse|partner|kids?|children)\b`)},
	{"exercise", regexp.MustCompile(`(?i)\b(exercise|walk(ing|ed)?|gym|running|yoga)\b`)},
}

// FallbackSummary synthesizes a summary without the model: the turn count
// plus up to three matched topic tags. The output depends only on the turns,
// so retrying a failed pass produces the same text.
func FallbackSummary(turns []memory.Turn) string {
	var combined strings.Builder
	for _, t := range turns {
		combined.WriteString(t.Text)
		combined.WriteString("\n")
	}
	text := combined.String()

	var tags []string
	for _, topic := range fallbackTopics {
		if topic.pattern.MatchString(text) {
			tags = append(tags, topic.tag)
			if len(tags) == maxFallbackTopics {
				break
			}
		}
	}

	if len(tags) == 0 {
		return fmt.Sprintf("Conversation with %d turns.", len(turns))
	}
	return fmt.Sprintf("Conversation with %d turns about: %s", len(turns), strings.Join(tags, ", "))
}
