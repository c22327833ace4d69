package postgres_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/storage/postgres"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("KEEPSAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("KEEPSAKE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
		convID string
		base   time.Time
	)

	saveTurn := func(text string, offset time.Duration) *memory.Turn {
		turn := &memory.Turn{
			ID:             uuid.NewString(),
			ConversationID: convID,
			Role:           memory.RoleUser,
			Text:           text,
			Importance:     memory.ScoreImportance(memory.RoleUser, text),
			CreatedAt:      base.Add(offset),
		}
		Expect(driver.SaveTurn(ctx, turn)).To(Succeed())
		return turn
	}

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())

		// A fresh conversation id per test keeps tests isolated without
		// truncating shared tables.
		convID = uuid.NewString()
		base = time.Now().UTC().Truncate(time.Second)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.DeleteConversation(ctx, convID)).To(Succeed())
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("returns an error for an invalid connection string", func() {
			_, err := postgres.NewDriver(context.Background(),
				"host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
			Expect(err).To(HaveOccurred())
			fmt.Fprintf(GinkgoWriter, "expected error: %v\n", err)
		})
	})

	Describe("turns", func() {
		It("round-trips turns in chronological order", func() {
			for i := range 4 {
				saveTurn(fmt.Sprintf("turn %d", i), time.Duration(i)*time.Second)
			}

			recent, err := driver.RecentTurns(ctx, convID, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Text).To(Equal("turn 2"))
			Expect(recent[1].Text).To(Equal("turn 3"))
		})
	})

	Describe("summarization bookkeeping", func() {
		It("marks turns summarized with an id set", func() {
			first := saveTurn("first", 0)
			saveTurn("second", time.Second)

			Expect(driver.MarkSummarized(ctx, convID, []string{first.ID})).To(Succeed())

			count, err := driver.CountUnsummarized(ctx, convID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})

	Describe("pins", func() {
		It("ranks pins by importance then urgency", func() {
			Expect(driver.SavePin(ctx, &memory.Pin{
				ID: uuid.NewString(), ConversationID: convID, Text: "a",
				Importance: 0.6, Urgency: memory.UrgencyCritical, CreatedAt: base,
			})).To(Succeed())
			Expect(driver.SavePin(ctx, &memory.Pin{
				ID: uuid.NewString(), ConversationID: convID, Text: "b",
				Importance: 0.9, Urgency: memory.UrgencyNormal, CreatedAt: base,
			})).To(Succeed())

			top, err := driver.TopPins(ctx, convID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(top).To(HaveLen(2))
			Expect(top[0].Text).To(Equal("b"))
		})
	})
})
