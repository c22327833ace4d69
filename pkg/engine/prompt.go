package engine

import (
	"strings"

	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/memory"
)

const persona = "You are a calm, attentive care assistant for a single " +
	"household. Be warm and concrete. Never invent medication, dosage, or " +
	"appointment details; if a fact is not in the notes below, say you don't " +
	"have it on record."

// buildMessages renders the memory context and the inbound message as the
// model payload. Pins, summaries, and domain records go into the system
// message as plain text notes; recent turns replay as chat history, oldest
// first, and the current message is the final user message.
func buildMessages(mc *memory.MemoryContext, domainContext, userText string) []llm.Message {
	var system strings.Builder
	system.WriteString(persona)

	if len(mc.Pins) > 0 {
		system.WriteString("\n\nPinned notes:")
		for _, p := range mc.Pins {
			system.WriteString("\n- ")
			if p.Urgency > memory.UrgencyNormal {
				system.WriteString("[" + p.Urgency.String() + "] ")
			}
			system.WriteString(p.Text)
		}
	}

	if len(mc.Summaries) > 0 {
		system.WriteString("\n\nEarlier in this conversation:")
		for _, s := range mc.Summaries {
			system.WriteString("\n- " + s.Text)
		}
	}

	if domainContext != "" {
		system.WriteString("\n\nCurrent records:\n" + domainContext)
	}

	messages := make([]llm.Message, 0, len(mc.RecentTurns)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system.String()})
	for _, t := range mc.RecentTurns {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Text})
	}
	return append(messages, llm.Message{Role: "user", Content: userText})
}
