package brain

import (
	"context"
	"errors"
	"strings"

	"github.com/ent0n29/voicediary/internal/prompt"
)

// Conversationalist produces a reply to an ordered list of role-tagged
// messages. Implementations translate every provider failure into a fault
// error; a raw SDK error never crosses this boundary.
type Conversationalist interface {
	Converse(ctx context.Context, messages []prompt.Message) (string, error)
}

// Config controls conversationalist construction.
type Config struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// New selects a conversationalist by mode: auto picks OpenAI when a key is
// configured and falls back to the mock otherwise.
func New(cfg Config) (Conversationalist, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai brain requires OPENAI_API_KEY")
		}
		return NewOpenAIBrain(cfg), nil
	case "mock":
		return NewMockBrain(), nil
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIBrain(cfg), nil
		}
		return NewMockBrain(), nil
	default:
		return nil, errors.New("invalid brain mode: expected auto|openai|mock")
	}
}
