package query_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/query"
)

var _ = Describe("Classify", func() {
	DescribeTable("routes lookup queries to their category",
		func(text string, expected query.Category) {
			Expect(query.Classify(text)).To(Equal(expected))
		},
		Entry("medication question", "What medications am I on?", query.CategoryMedications),
		Entry("meds shorthand", "remind me what meds I take", query.CategoryMedications),
		Entry("dosage question", "what's the dosage for the evening pill", query.CategoryMedications),
		Entry("prescription", "did my prescription change", query.CategoryMedications),
		Entry("appointment question", "when is my next appointment?", query.CategoryAppointments),
		Entry("doctor visit", "when am I seeing the doctor again", query.CategoryAppointments),
		Entry("next session", "what time is my next session", query.CategoryAppointments),
		Entry("journal question", "read me my last journal entry", query.CategoryJournal),
		Entry("diary entries", "show the diary entries from last week", query.CategoryJournal),
		Entry("small talk", "I had a rough night", query.CategoryGeneral),
		Entry("feelings", "I've been feeling anxious lately", query.CategoryGeneral),
		Entry("empty text", "", query.CategoryGeneral),
	)

	It("lets the first matching group win", func() {
		// Mentions both meds and appointments; medication rules run first.
		Expect(query.Classify("do I take my medication before the appointment?")).
			To(Equal(query.CategoryMedications))
	})

	It("marks lookup categories", func() {
		Expect(query.CategoryMedications.IsLookup()).To(BeTrue())
		Expect(query.CategoryAppointments.IsLookup()).To(BeTrue())
		Expect(query.CategoryJournal.IsLookup()).To(BeTrue())
		Expect(query.CategoryGeneral.IsLookup()).To(BeFalse())
	})
})
