// anthropic.go summarizes through the Anthropic Messages API.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/steveyegge/samara/internal/stream"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	// EnvAnthropicAPIKey enables the Anthropic backend.
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// messagesClient is the slice of the Anthropic SDK the summarizer needs.
// *sdk.MessageService satisfies it; tests substitute a mock.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Anthropic summarizes through the hosted Messages API.
type Anthropic struct {
	msg   messagesClient
	model string
}

// NewAnthropic builds a client from an API key. An empty model selects
// DefaultAnthropicModel.
func NewAnthropic(apiKey, model string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{msg: &client.Messages, model: model}, nil
}

// AnthropicFromEnv builds a client when ANTHROPIC_API_KEY is set, and
// reports false otherwise.
func AnthropicFromEnv(model string) (*Anthropic, bool) {
	key := strings.TrimSpace(os.Getenv(EnvAnthropicAPIKey))
	if key == "" {
		return nil, false
	}
	a, err := NewAnthropic(key, model)
	if err != nil {
		return nil, false
	}
	return a, true
}

// Summarize sends the event window to the Messages API and joins the
// text blocks of the reply.
func (a *Anthropic) Summarize(ctx context.Context, events []stream.Event, model string) (string, error) {
	if model == "" {
		model = a.model
	}
	msg, err := a.msg.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: 1024,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(events))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", errors.New("anthropic returned no text")
	}
	return text, nil
}
