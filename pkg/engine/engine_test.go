package engine_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/care"
	"github.com/quillhealthco/keepsake/pkg/engine"
	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/logger"
	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/memory/assembler"
	"github.com/quillhealthco/keepsake/pkg/memory/cache"
	"github.com/quillhealthco/keepsake/pkg/memory/summarizer"
	"github.com/quillhealthco/keepsake/pkg/query"
	"github.com/quillhealthco/keepsake/pkg/storage/inmemory"
)

// recordingInvoker captures every payload it receives and replies with a
// fixed result or error.
type recordingInvoker struct {
	mu       sync.Mutex
	payloads [][]llm.Message
	reply    string
	err      error
}

func (r *recordingInvoker) Invoke(_ context.Context, messages []llm.Message, _ llm.Settings) (*llm.Result, error) {
	r.mu.Lock()
	r.payloads = append(r.payloads, messages)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Result{Text: r.reply, Model: "test-model"}, nil
}

func (r *recordingInvoker) lastPayload() []llm.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.payloads) == 0 {
		return nil
	}
	return r.payloads[len(r.payloads)-1]
}

var _ = Describe("Engine", func() {
	var (
		ctx       context.Context
		store     *inmemory.Driver
		memCh     *cache.Cache
		invoker   *recordingInvoker
		directory *care.Directory
		eng       *engine.Engine
		convID    string
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		memCh = cache.New(cache.DefaultTTL)
		invoker = &recordingInvoker{reply: "That sounds hard. How did you sleep after that?"}
		directory = care.NewDirectory()
		convID = uuid.NewString()

		log := logger.New()
		asm := assembler.New(store, memCh, log)
		summ := summarizer.New(store, memCh, nil, log)

		eng = engine.New(engine.Params{
			Store:      store,
			Cache:      memCh,
			Assembler:  asm,
			Summarizer: summ,
			Invoker:    invoker,
			Care:       directory,
			Sessions:   directory,
			Log:        log,
		})
	})

	It("rejects an empty message", func() {
		_, err := eng.ProcessTurn(ctx, convID, "")
		Expect(err).To(HaveOccurred())
	})

	Describe("general path", func() {
		It("replies via the model and persists both turns", func() {
			reply, err := eng.ProcessTurn(ctx, convID, "I had a rough night")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Category).To(Equal(query.CategoryGeneral))
			Expect(reply.Text).To(Equal("That sounds hard. How did you sleep after that?"))
			Expect(reply.Model).To(Equal("test-model"))

			turns, err := store.RecentTurns(ctx, convID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Role).To(Equal(memory.RoleUser))
			Expect(turns[1].Role).To(Equal(memory.RoleAssistant))
			Expect(turns[1].Model).To(Equal("test-model"))
		})

		It("sends the current message exactly once in the payload", func() {
			_, err := eng.ProcessTurn(ctx, convID, "a unique marker phrase")
			Expect(err).NotTo(HaveOccurred())

			payload := invoker.lastPayload()
			occurrences := 0
			for _, m := range payload {
				if m.Content == "a unique marker phrase" {
					occurrences++
				}
			}
			Expect(occurrences).To(Equal(1))
			Expect(payload[len(payload)-1].Content).To(Equal("a unique marker phrase"))
		})

		It("replays earlier turns as history on the next call", func() {
			_, err := eng.ProcessTurn(ctx, convID, "first message")
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.ProcessTurn(ctx, convID, "second message")
			Expect(err).NotTo(HaveOccurred())

			payload := invoker.lastPayload()
			var history []string
			for _, m := range payload[1 : len(payload)-1] {
				history = append(history, m.Content)
			}
			Expect(history).To(ContainElement("first message"))
			Expect(history).NotTo(ContainElement("second message"))
		})

		It("persists nothing when the model fails, leaving the turn retryable", func() {
			invoker.err = &llm.TransientError{Err: errors.New("upstream 503")}

			_, err := eng.ProcessTurn(ctx, convID, "hello there")
			Expect(err).To(HaveOccurred())
			Expect(llm.IsTransient(err)).To(BeTrue())

			count, countErr := store.CountTurns(ctx, convID)
			Expect(countErr).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			// Retry succeeds once the provider recovers.
			invoker.err = nil
			reply, err := eng.ProcessTurn(ctx, convID, "hello there")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).NotTo(BeEmpty())

			count, countErr = store.CountTurns(ctx, convID)
			Expect(countErr).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})

		It("includes pinned notes in the system message", func() {
			_, err := eng.CreatePin(ctx, convID, "allergic to penicillin", "", engine.PinOptions{
				Urgency: memory.UrgencyCritical,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.ProcessTurn(ctx, convID, "good morning")
			Expect(err).NotTo(HaveOccurred())

			payload := invoker.lastPayload()
			Expect(payload[0].Role).To(Equal("system"))
			Expect(payload[0].Content).To(ContainSubstring("allergic to penicillin"))
			Expect(payload[0].Content).To(ContainSubstring("[critical]"))
		})

		It("appends the default subject's records as opaque text", func() {
			directory.AddSubject(care.Subject{ID: "sub-ann", Name: "Ann"},
				[]care.Medication{{
					Name:      "Sertraline",
					Dosage:    "50mg",
					Schedule:  "once daily",
					StartedAt: time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC),
				}}, nil, nil)
			directory.SetDefaultSubject(convID, "sub-ann")

			_, err := eng.ProcessTurn(ctx, convID, "good morning")
			Expect(err).NotTo(HaveOccurred())

			payload := invoker.lastPayload()
			Expect(payload[0].Content).To(ContainSubstring("Sertraline 50mg"))
		})

		It("schedules summarization once enough turns accumulate", func() {
			var reply *engine.Reply
			var err error
			for i := 0; i < 4; i++ {
				reply, err = eng.ProcessTurn(ctx, convID, "tell me something encouraging please")
				Expect(err).NotTo(HaveOccurred())
			}

			// The fourth exchange brings the conversation to eight turns.
			Expect(reply.Summarization).NotTo(BeNil())
			Eventually(reply.Summarization.Done()).Should(BeClosed())
			Expect(reply.Summarization.Summary()).NotTo(BeNil())

			count, err := store.CountUnsummarized(ctx, convID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("fact-lookup path", func() {
		BeforeEach(func() {
			directory.AddSubject(care.Subject{ID: "sub-ann", Name: "Ann"},
				[]care.Medication{{
					Name:      "Sertraline",
					Dosage:    "50mg",
					Schedule:  "once daily, morning",
					StartedAt: time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC),
				}},
				[]care.Appointment{{
					Title:    "Therapy session",
					Provider: "Dr. Okafor",
					At:       time.Date(2026, time.September, 3, 14, 30, 0, 0, time.UTC),
				}},
				nil)
			directory.SetDefaultSubject(convID, "sub-ann")
		})

		It("answers a medication query deterministically without the model", func() {
			reply, err := eng.ProcessTurn(ctx, convID, "What medications am I on?")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Category).To(Equal(query.CategoryMedications))
			Expect(reply.Model).To(BeEmpty())
			Expect(reply.Text).To(ContainSubstring("Sertraline 50mg, once daily, morning"))
			Expect(invoker.lastPayload()).To(BeNil())
		})

		It("answers an appointment query deterministically", func() {
			reply, err := eng.ProcessTurn(ctx, convID, "when is my next appointment?")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Category).To(Equal(query.CategoryAppointments))
			Expect(reply.Text).To(ContainSubstring("Dr. Okafor"))
			Expect(reply.Text).To(ContainSubstring("Thu, Sep 3, 2026 at 2:30 PM"))
		})

		It("persists the lookup exchange", func() {
			_, err := eng.ProcessTurn(ctx, convID, "What medications am I on?")
			Expect(err).NotTo(HaveOccurred())

			turns, err := store.RecentTurns(ctx, convID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[1].Text).To(ContainSubstring("Sertraline"))
		})

		It("asks for clarification instead of guessing a subject", func() {
			other := uuid.NewString() // no default subject recorded

			reply, err := eng.ProcessTurn(ctx, other, "what medications?")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.NeedsClarification).To(BeTrue())
			Expect(reply.Text).To(ContainSubstring("which person"))
			Expect(invoker.lastPayload()).To(BeNil())
		})

		It("resolves an explicitly named subject", func() {
			directory.AddSubject(care.Subject{ID: "sub-robert", Name: "Robert"},
				[]care.Medication{{
					Name:      "Metformin",
					Dosage:    "500mg",
					Schedule:  "twice daily",
					StartedAt: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
				}}, nil, nil)

			reply, err := eng.ProcessTurn(ctx, convID, "list medications for Robert")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(ContainSubstring("Metformin"))
			Expect(reply.Text).NotTo(ContainSubstring("Sertraline"))
		})
	})

	Describe("pins", func() {
		It("creates a pin with defaults", func() {
			pin, err := eng.CreatePin(ctx, convID, "prefers morning appointments", "", engine.PinOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pin.Importance).To(Equal(memory.PinImportance))
			Expect(pin.Urgency).To(Equal(memory.UrgencyNormal))
			Expect(pin.ID).NotTo(BeEmpty())
		})

		It("rejects empty pin text", func() {
			_, err := eng.CreatePin(ctx, convID, "", "", engine.PinOptions{})
			Expect(err).To(HaveOccurred())
		})

		It("clamps an importance override into range", func() {
			pin, err := eng.CreatePin(ctx, convID, "note", "", engine.PinOptions{Importance: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(pin.Importance).To(Equal(1.0))
		})

		It("ranks pins by importance, urgency, then recency", func() {
			_, err := eng.CreatePin(ctx, convID, "low", "", engine.PinOptions{Importance: 0.6})
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.CreatePin(ctx, convID, "urgent", "", engine.PinOptions{
				Importance: 0.9, Urgency: memory.UrgencyCritical,
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.CreatePin(ctx, convID, "plain high", "", engine.PinOptions{Importance: 0.9})
			Expect(err).NotTo(HaveOccurred())

			pins, err := eng.ListTopPins(ctx, convID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pins).To(HaveLen(3))
			Expect(pins[0].Text).To(Equal("urgent"))
			Expect(pins[1].Text).To(Equal("plain high"))
			Expect(pins[2].Text).To(Equal("low"))
		})
	})

	It("serializes turns within a conversation", func() {
		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			for i := 0; i < 5; i++ {
				_, err := eng.ProcessTurn(ctx, convID, "message from goroutine")
				Expect(err).NotTo(HaveOccurred())
			}
		}()
		for i := 0; i < 5; i++ {
			_, err := eng.ProcessTurn(ctx, convID, "message from main")
			Expect(err).NotTo(HaveOccurred())
		}
		Eventually(done).Should(BeClosed())

		count, err := store.CountTurns(ctx, convID)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(20))
	})
})
