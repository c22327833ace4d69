package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillhealthco/keepsake/pkg/llm"
)

var _ = Describe("error classification", func() {
	Describe("Transient", func() {
		It("returns nil for a nil error", func() {
			Expect(llm.Transient(nil)).To(BeNil())
		})

		It("marks wrapped errors as transient", func() {
			err := llm.Transient(errors.New("connection refused"))
			Expect(llm.IsTransient(err)).To(BeTrue())
		})

		It("survives further wrapping", func() {
			err := fmt.Errorf("summarize: %w", llm.Transient(errors.New("timeout")))
			Expect(llm.IsTransient(err)).To(BeTrue())
		})

		It("does not mark ordinary errors", func() {
			Expect(llm.IsTransient(errors.New("bad request"))).To(BeFalse())
		})
	})

	Describe("ClassifyRequestError", func() {
		It("treats context deadline as transient", func() {
			err := llm.ClassifyRequestError(fmt.Errorf("request: %w", context.DeadlineExceeded))
			Expect(llm.IsTransient(err)).To(BeTrue())
		})

		It("passes through non-network errors", func() {
			orig := errors.New("malformed payload")
			Expect(llm.IsTransient(llm.ClassifyRequestError(orig))).To(BeFalse())
		})
	})

	Describe("ClassifyHTTPError", func() {
		It("treats 429 and 5xx as transient", func() {
			for _, code := range []int{http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
				err := llm.ClassifyHTTPError(code, errors.New("provider error"))
				Expect(llm.IsTransient(err)).To(BeTrue(), "status %d", code)
			}
		})

		It("treats 4xx (other than 408/429) as permanent", func() {
			for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
				err := llm.ClassifyHTTPError(code, errors.New("provider error"))
				Expect(llm.IsTransient(err)).To(BeFalse(), "status %d", code)
			}
		})
	})
})

var _ = Describe("NormalizeProvider", func() {
	It("defaults to ollama when unset", func() {
		name, err := llm.NormalizeProvider(llm.ProviderConfig{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal(llm.ProviderOllama))
	})

	It("keeps a keyed provider when a key is explicit", func() {
		name, err := llm.NormalizeProvider(llm.ProviderConfig{Provider: "openai", APIKey: "sk-test"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal(llm.ProviderOpenAI))
	})

	It("falls back to ollama when no key resolves", func() {
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
		name, err := llm.NormalizeProvider(llm.ProviderConfig{Provider: "anthropic"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal(llm.ProviderOllama))
	})

	It("rejects unknown providers", func() {
		_, err := llm.NormalizeProvider(llm.ProviderConfig{Provider: "yodel"}, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("InvokeFunc", func() {
	It("adapts a function to the Invoker interface", func() {
		var invoker llm.Invoker = llm.InvokeFunc(
			func(_ context.Context, messages []llm.Message, _ llm.Settings) (*llm.Result, error) {
				return &llm.Result{Text: "echo: " + messages[len(messages)-1].Content}, nil
			})

		result, err := invoker.Invoke(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.Settings{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("echo: hi"))
	})
})
