package assembler_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/logger"
	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/memory/assembler"
	"github.com/quillhealthco/keepsake/pkg/memory/cache"
	"github.com/quillhealthco/keepsake/pkg/storage/inmemory"
)

var _ = Describe("Assembler", func() {
	var (
		ctx    context.Context
		store  *inmemory.Driver
		memCh  *cache.Cache
		asm    *assembler.Assembler
		convID string
		now    time.Time
	)

	saveTurn := func(role memory.Role, text string, at time.Time) memory.Turn {
		turn := memory.Turn{
			ID:             uuid.NewString(),
			ConversationID: convID,
			Role:           role,
			Text:           text,
			TokenEstimate:  memory.EstimateTokens(text),
			Importance:     memory.ScoreImportance(role, text),
			CreatedAt:      at,
		}
		Expect(store.SaveTurn(ctx, &turn)).To(Succeed())
		return turn
	}

	savePin := func(text string, importance float64, at time.Time) memory.Pin {
		pin := memory.Pin{
			ID:             uuid.NewString(),
			ConversationID: convID,
			Text:           text,
			SourceTurnID:   uuid.NewString(),
			Importance:     importance,
			CreatedAt:      at,
		}
		Expect(store.SavePin(ctx, &pin)).To(Succeed())
		return pin
	}

	saveSummary := func(text string, at time.Time) memory.Summary {
		summary := memory.Summary{
			ID:             uuid.NewString(),
			ConversationID: convID,
			Text:           text,
			TurnCount:      8,
			Importance:     memory.SummaryImportance,
			CreatedAt:      at,
		}
		Expect(store.SaveSummary(ctx, &summary)).To(Succeed())
		return summary
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		memCh = cache.New(cache.DefaultTTL)
		asm = assembler.New(store, memCh, logger.New())
		convID = uuid.NewString()
		now = time.Now().UTC()
	})

	It("returns an empty context for an unknown conversation", func() {
		mc, err := asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(mc.RecentTurns).To(BeEmpty())
		Expect(mc.Pins).To(BeEmpty())
		Expect(mc.Summaries).To(BeEmpty())
		Expect(mc.TokenEstimate).To(BeZero())
	})

	It("includes only the most recent turns, oldest first", func() {
		for i := 0; i < 12; i++ {
			saveTurn(memory.RoleUser, fmt.Sprintf("turn %02d", i), now.Add(time.Duration(i)*time.Second))
		}

		mc, err := asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(mc.RecentTurns).To(HaveLen(assembler.DefaultRecentTurns))
		Expect(mc.RecentTurns[0].Text).To(Equal("turn 02"))
		Expect(mc.RecentTurns[len(mc.RecentTurns)-1].Text).To(Equal("turn 11"))
	})

	It("excludes a turn persisted after the build from the cached context", func() {
		saveTurn(memory.RoleUser, "first message", now)

		mc, err := asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(mc.RecentTurns).To(HaveLen(1))

		// Without invalidation the cache still serves the old snapshot.
		saveTurn(memory.RoleUser, "second message", now.Add(time.Second))
		mc, err = asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(mc.RecentTurns).To(HaveLen(1))

		// Invalidation makes the next build see the write.
		memCh.Invalidate(convID)
		mc, err = asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(mc.RecentTurns).To(HaveLen(2))
	})

	It("is idempotent for unchanged history", func() {
		saveTurn(memory.RoleUser, "I doubled the evening dose yesterday", now)
		saveTurn(memory.RoleAssistant, "Noted, I'll flag that for the care team.", now.Add(time.Second))
		savePin("doubled evening dose without approval", 0.9, now.Add(2*time.Second))
		saveSummary("Conversation with 8 turns about: sleep, medication", now.Add(3*time.Second))

		first, err := asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		second, err := asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	Describe("budget truncation", func() {
		It("drops the lowest-importance pin before any floor turn", func() {
			// Three short recent turns (the floor) plus one bulky pin.
			for i := 0; i < 3; i++ {
				saveTurn(memory.RoleUser, "short note", now.Add(time.Duration(i)*time.Second))
			}
			savePin(strings.Repeat("pinned fact ", 40), 0.8, now.Add(time.Minute))

			floorTokens := 3 * memory.EstimateTokens("short note")
			mc, err := asm.BuildContext(ctx, convID, floorTokens)
			Expect(err).NotTo(HaveOccurred())
			Expect(mc.Pins).To(BeEmpty())
			Expect(mc.RecentTurns).To(HaveLen(3))
			Expect(mc.TokenEstimate).To(BeNumerically("<=", floorTokens))
		})

		It("drops pins lowest importance first", func() {
			saveTurn(memory.RoleUser, "hi", now)
			keep := savePin("critical allergy to penicillin", 0.95, now)
			savePin(strings.Repeat("low value reminder ", 30), 0.6, now.Add(time.Second))

			budget := memory.EstimateTokens("hi") + memory.EstimateTokens(keep.Text)
			mc, err := asm.BuildContext(ctx, convID, budget)
			Expect(err).NotTo(HaveOccurred())
			Expect(mc.Pins).To(HaveLen(1))
			Expect(mc.Pins[0].ID).To(Equal(keep.ID))
		})

		It("drops oldest summaries after pins", func() {
			saveTurn(memory.RoleUser, "hi", now)
			saveSummary(strings.Repeat("older summary ", 20), now.Add(-2*time.Hour))
			newest := saveSummary("newest summary", now.Add(-time.Hour))

			budget := memory.EstimateTokens("hi") + memory.EstimateTokens(newest.Text)
			mc, err := asm.BuildContext(ctx, convID, budget)
			Expect(err).NotTo(HaveOccurred())
			Expect(mc.Summaries).To(HaveLen(1))
			Expect(mc.Summaries[0].ID).To(Equal(newest.ID))
		})

		It("keeps the floor of recent turns even when it alone exceeds the budget", func() {
			for i := 0; i < 6; i++ {
				saveTurn(memory.RoleUser, strings.Repeat("long turn text ", 20), now.Add(time.Duration(i)*time.Second))
			}

			mc, err := asm.BuildContext(ctx, convID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(mc.RecentTurns).To(HaveLen(assembler.DefaultTruncateFloor))
			Expect(mc.TokenEstimate).To(BeNumerically(">", 10))
		})

		It("never errors on over-budget input", func() {
			for i := 0; i < 10; i++ {
				saveTurn(memory.RoleUser, strings.Repeat("x", 4000), now.Add(time.Duration(i)*time.Second))
			}
			savePin(strings.Repeat("y", 4000), 0.8, now)
			saveSummary(strings.Repeat("z", 4000), now)

			_, err := asm.BuildContext(ctx, convID, 1)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	It("does not let truncation poison the cache for the next build", func() {
		saveTurn(memory.RoleUser, "hi", now)
		savePin(strings.Repeat("pinned fact ", 40), 0.8, now)

		tight, err := asm.BuildContext(ctx, convID, memory.EstimateTokens("hi"))
		Expect(err).NotTo(HaveOccurred())
		Expect(tight.Pins).To(BeEmpty())

		relaxed, err := asm.BuildContext(ctx, convID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(relaxed.Pins).To(HaveLen(1))
	})
})
