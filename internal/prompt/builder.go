package prompt

import (
	"strings"

	"github.com/ent0n29/voicediary/internal/fault"
	"github.com/ent0n29/voicediary/internal/memory"
)

// Message is one role-tagged entry in a provider-agnostic chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SystemDirective is the fixed persona instruction sent as the first
// message of every chat request.
const SystemDirective = `You are a supportive AI journaling assistant trained in Cognitive Behavioral Therapy principles. Your role is to help users reflect on their thoughts and feelings through gentle, non-judgmental conversation.

Guidelines:
- Be warm, empathetic, and supportive
- Ask open-ended questions to encourage self-reflection
- Help users identify patterns in their thoughts and feelings
- Use CBT techniques like thought examination and reframing when appropriate
- Never provide medical advice or diagnosis
- Keep responses concise (2-3 sentences ideal)
- Reflect back what the user shares to show understanding`

// Builder assembles chat requests from session history and the new user
// message. Build is pure: identical inputs yield identical output and the
// history slice is never mutated.
type Builder struct {
	directive    string
	maxUserChars int
}

func NewBuilder(maxUserChars int) *Builder {
	if maxUserChars <= 0 {
		maxUserChars = 5000
	}
	return &Builder{directive: SystemDirective, maxUserChars: maxUserChars}
}

// Build produces the ordered message list: system directive, each history
// turn in order, then the new user message last.
func (b *Builder) Build(history []memory.Turn, userText string) ([]Message, error) {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return nil, fault.Validation("empty_message", "message cannot be empty")
	}
	if len(trimmed) > b.maxUserChars {
		return nil, fault.Validation("message_too_long",
			"message is %d chars, maximum is %d", len(trimmed), b.maxUserChars)
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: b.directive})
	for _, turn := range history {
		msgs = append(msgs, Message{Role: roleOf(turn.Role), Content: turn.Content})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: trimmed})
	return msgs, nil
}

func roleOf(r memory.Role) string {
	if r == memory.RoleAssistant {
		return RoleAssistant
	}
	return RoleUser
}
