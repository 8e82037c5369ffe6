package brain

import (
	"context"
	"fmt"

	"github.com/ent0n29/voicediary/internal/prompt"
)

// MockBrain is a local fallback conversationalist used when no LLM key is
// configured.
type MockBrain struct{}

func NewMockBrain() *MockBrain { return &MockBrain{} }

func (b *MockBrain) Converse(_ context.Context, messages []prompt.Message) (string, error) {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == prompt.RoleUser {
			last = messages[i].Content
			break
		}
	}
	if last == "" {
		return "I'm here whenever you want to talk.", nil
	}
	return fmt.Sprintf("Thank you for sharing that. What stood out to you most about %q?", last), nil
}
