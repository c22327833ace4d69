package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/quillhealthco/keepsake/pkg/care"
)

// ErrNeedsClarification is returned when a fact-lookup query resolves to no
// subject. The caller should ask the user who they mean rather than guess.
var ErrNeedsClarification = errors.New("cannot determine which person the query refers to")

// pronounPattern matches anaphoric references, including first-person forms:
// in a single-operator deployment "my medications" refers to the session's
// default subject.
var pronounPattern = regexp.MustCompile(`(?i)\b(i|me|my|mine|he|him|his|she|her|hers|they|them|their)\b`)

// Resolver decides which subject a query refers to.
type Resolver struct {
	provider care.Provider
	sessions care.Sessions
}

// NewResolver creates a Resolver over the care application's contracts.
func NewResolver(provider care.Provider, sessions care.Sessions) *Resolver {
	return &Resolver{provider: provider, sessions: sessions}
}

// ResolveSubject determines the subject a query refers to, in fixed priority:
// an anaphoric reference with a recorded default subject, then an explicit
// known-subject name, then the conversation's default subject. When nothing
// resolves it returns ErrNeedsClarification.
func (r *Resolver) ResolveSubject(ctx context.Context, text, conversationID string) (string, error) {
	defaultSubject, err := r.sessions.DefaultSubject(ctx, conversationID)
	if err != nil && !errors.Is(err, care.ErrNoSubject) {
		return "", fmt.Errorf("default subject: %w", err)
	}

	if defaultSubject != "" && pronounPattern.MatchString(text) {
		return defaultSubject, nil
	}

	subjects, err := r.provider.Subjects(ctx)
	if err != nil {
		return "", fmt.Errorf("list subjects: %w", err)
	}

	lower := strings.ToLower(text)
	for _, s := range subjects {
		name := strings.ToLower(s.Name)
		if name != "" && containsWord(lower, name) {
			return s.ID, nil
		}
	}

	if defaultSubject != "" {
		return defaultSubject, nil
	}

	return "", ErrNeedsClarification
}

// containsWord reports whether name appears in text on word boundaries, so
// "ann" doesn't match inside "planning".
func containsWord(text, name string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], name)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(name)

		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
