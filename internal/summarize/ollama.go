// ollama.go talks to a local Ollama server through its OpenAI-compatible
// endpoint.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/steveyegge/samara/internal/stream"
)

const (
	// DefaultOllamaBaseURL is the stock Ollama OpenAI-compatible endpoint.
	DefaultOllamaBaseURL = "http://localhost:11434/v1"

	// DefaultOllamaModel is used when no model is configured.
	DefaultOllamaModel = "llama3.2"

	// EnvOllamaHost overrides the Ollama base URL.
	EnvOllamaHost = "OLLAMA_HOST"
)

// chatCompleter is the slice of the OpenAI client the summarizer needs.
// *openai.ChatCompletionService satisfies it; tests substitute a mock.
type chatCompleter interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Ollama summarizes through a local model server.
type Ollama struct {
	chat  chatCompleter
	model string
}

// NewOllama builds a client for the given base URL and default model.
// Empty arguments fall back to OLLAMA_HOST, then the stock defaults.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = OllamaBaseURLFromEnv()
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		// Ollama ignores credentials but the client requires one.
		option.WithAPIKey("ollama"),
	)
	return &Ollama{chat: &client.Chat.Completions, model: model}
}

// OllamaBaseURLFromEnv resolves the base URL from OLLAMA_HOST, accepting
// the bare host:port form the Ollama CLI uses.
func OllamaBaseURLFromEnv() string {
	host := strings.TrimSpace(os.Getenv(EnvOllamaHost))
	if host == "" {
		return DefaultOllamaBaseURL
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	host = strings.TrimRight(host, "/")
	if !strings.HasSuffix(host, "/v1") {
		host += "/v1"
	}
	return host
}

// Summarize sends the event window to the local model.
func (o *Ollama) Summarize(ctx context.Context, events []stream.Event, model string) (string, error) {
	if model == "" {
		model = o.model
	}
	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(events)),
		},
		MaxTokens: openai.Int(1024),
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("ollama returned empty content")
	}
	return text, nil
}
