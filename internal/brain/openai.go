package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ent0n29/voicediary/internal/fault"
	"github.com/ent0n29/voicediary/internal/prompt"
)

// OpenAIBrain converses through the OpenAI chat completions API.
type OpenAIBrain struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIBrain(cfg Config) *OpenAIBrain {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &OpenAIBrain{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

func (b *OpenAIBrain) Converse(ctx context.Context, messages []prompt.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    convertMessages(messages),
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fault.Upstream("empty_completion", fmt.Errorf("no choices in completion"))
	}
	// The reply is returned verbatim: no post-processing, no filtering.
	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []prompt.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    convertRole(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func convertRole(role string) string {
	switch role {
	case prompt.RoleSystem:
		return openai.ChatMessageRoleSystem
	case prompt.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fault.UpstreamStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// Let the adapter decide timeout vs cancellation from its contexts.
		return err
	}
	return fault.Upstream("openai_request_failed", err)
}
