package summarizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Rules are the heuristics an acceptable model summary must pass. A rejected
// summary is replaced by the deterministic fallback, never surfaced as an
// error.
type Rules struct {
	// MaxChars is the maximum summary length in bytes.
	MaxChars int

	// MaxRatio is the maximum summary/source length ratio. A "summary"
	// longer than half its source isn't compressing.
	MaxRatio float64

	// MinOverlap is the minimum fraction of summary words that must appear
	// in the source. Low overlap means the model wandered off the transcript.
	MinOverlap float64
}

// DefaultRules returns the default validation thresholds.
func DefaultRules() Rules {
	return Rules{
		MaxChars:   1200,
		MaxRatio:   0.5,
		MinOverlap: 0.3,
	}
}

// preambles are conversational lead-ins a model emits when it answers instead
// of summarizing.
var preambles = []string{
	"here's",
	"here is",
	"certainly",
	"sure",
	"okay",
	"of course",
}

// Check returns nil when the summary is acceptable, or an error naming the
// first failed heuristic.
func (r Rules) Check(summary, source string) error {
	if summary == "" {
		return errors.New("empty summary")
	}
	if len(summary) > r.MaxChars {
		return fmt.Errorf("summary length %d exceeds %d chars", len(summary), r.MaxChars)
	}
	if len(source) > 0 {
		ratio := float64(len(summary)) / float64(len(source))
		if ratio > r.MaxRatio {
			return fmt.Errorf("compression ratio %.2f exceeds %.2f", ratio, r.MaxRatio)
		}
	}

	lower := strings.ToLower(strings.TrimSpace(summary))
	for _, p := range preambles {
		if strings.HasPrefix(lower, p) {
			return fmt.Errorf("conversational preamble %q", p)
		}
	}
	if strings.Contains(summary, "```") {
		return errors.New("contains a code fence")
	}

	if overlap := wordOverlap(summary, source); overlap < r.MinOverlap {
		return fmt.Errorf("word overlap %.2f below %.2f", overlap, r.MinOverlap)
	}
	return nil
}

// wordOverlap returns the fraction of the summary's distinct significant
// words that also appear in the source. Words shorter than three runes are
// ignored. A summary with no significant words overlaps fully.
func wordOverlap(summary, source string) float64 {
	summaryWords := wordSet(summary)
	if len(summaryWords) == 0 {
		return 1
	}
	sourceWords := wordSet(source)

	matched := 0
	for w := range summaryWords {
		if _, ok := sourceWords[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(summaryWords))
}

func wordSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}
