package memory_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/memory"
)

var _ = Describe("ScoreImportance", func() {
	It("returns the baseline for empty text", func() {
		Expect(memory.ScoreImportance(memory.RoleUser, "")).To(Equal(memory.BaselineImportance))
	})

	It("returns the baseline for neutral text", func() {
		score := memory.ScoreImportance(memory.RoleUser, "it rained a bit today")
		Expect(score).To(Equal(memory.BaselineImportance))
	})

	It("stays within [0,1] for any input", func() {
		inputs := []string{
			"",
			"hello",
			"I'm anxious about my medication dose, can you help? " + strings.Repeat("x", 300),
			strings.Repeat("panic crisis medication appointment ?", 50),
		}
		for _, text := range inputs {
			score := memory.ScoreImportance(memory.RoleUser, text)
			Expect(score).To(BeNumerically(">=", 0))
			Expect(score).To(BeNumerically("<=", 1))
		}
	})

	It("scores emotional vocabulary highest", func() {
		emotional := memory.ScoreImportance(memory.RoleUser, "I feel anxious and overwhelmed")
		scheduling := memory.ScoreImportance(memory.RoleUser, "my appointment moved")
		Expect(emotional).To(BeNumerically(">", scheduling))
	})

	It("is monotonically non-decreasing as more groups match", func() {
		none := memory.ScoreImportance(memory.RoleUser, "nothing special")
		one := memory.ScoreImportance(memory.RoleUser, "I feel anxious")
		two := memory.ScoreImportance(memory.RoleUser, "I feel anxious about my medication")
		three := memory.ScoreImportance(memory.RoleUser, "I feel anxious about my medication, what should I do?")

		Expect(one).To(BeNumerically(">=", none))
		Expect(two).To(BeNumerically(">=", one))
		Expect(three).To(BeNumerically(">=", two))
	})

	It("counts each group at most once", func() {
		single := memory.ScoreImportance(memory.RoleUser, "anxious")
		repeated := memory.ScoreImportance(memory.RoleUser, "anxious panic depressed grief")
		Expect(repeated).To(Equal(single))
	})

	It("adds a small increment for long text", func() {
		short := memory.ScoreImportance(memory.RoleUser, "fine")
		long := memory.ScoreImportance(memory.RoleUser, strings.Repeat("fine and calm today, ", 20))
		Expect(long).To(BeNumerically(">", short))
	})

	It("adds a small increment for assistant turns", func() {
		user := memory.ScoreImportance(memory.RoleUser, "let's talk tomorrow")
		assistant := memory.ScoreImportance(memory.RoleAssistant, "let's talk tomorrow")
		Expect(assistant).To(BeNumerically(">", user))
	})

	It("clamps combined increments to 1.0", func() {
		text := "I'm in crisis and panicking about my medication dose, what should I do? " +
			strings.Repeat("please help ", 30)
		Expect(memory.ScoreImportance(memory.RoleAssistant, text)).To(Equal(1.0))
	})

	It("is deterministic", func() {
		text := "worried about my prescription refill"
		first := memory.ScoreImportance(memory.RoleUser, text)
		second := memory.ScoreImportance(memory.RoleUser, text)
		Expect(first).To(Equal(second))
	})
})

var _ = Describe("EstimateTokens", func() {
	It("returns zero for empty text", func() {
		Expect(memory.EstimateTokens("")).To(Equal(0))
	})

	It("rounds up partial tokens", func() {
		Expect(memory.EstimateTokens("abcde")).To(Equal(2))
		Expect(memory.EstimateTokens("abcd")).To(Equal(1))
	})

	It("sums turns, pins and summaries in a context", func() {
		mc := &memory.MemoryContext{
			RecentTurns: []memory.Turn{{Text: "aaaa"}, {Text: "bbbb"}},
			Pins:        []memory.Pin{{Text: "cccc"}},
			Summaries:   []memory.Summary{{Text: "dddd"}},
		}
		Expect(memory.EstimateContextTokens(mc)).To(Equal(4))
	})
})
