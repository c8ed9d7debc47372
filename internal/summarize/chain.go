// chain.go tries model backends in order and falls back to the
// deterministic summarizer.

package summarize

import (
	"context"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/util"
)

// Chain tries each backend in order, retrying transient failures once,
// and degrades to Fallback when every backend refuses. Summarize on a
// chain never returns an error.
type Chain struct {
	backends []Summarizer
	fallback Fallback
	logger   *zap.Logger
}

// NewChain builds a chain over the given backends. A nil logger
// disables logging.
func NewChain(logger *zap.Logger, backends ...Summarizer) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{backends: backends, logger: logger}
}

// FromEnv assembles the chain the environment configures: Anthropic
// when ANTHROPIC_API_KEY is set, Ollama when OLLAMA_HOST is set. With
// neither, the chain is just the fallback.
func FromEnv(logger *zap.Logger) *Chain {
	var backends []Summarizer
	if a, ok := AnthropicFromEnv(""); ok {
		backends = append(backends, a)
	}
	if hostSet() {
		backends = append(backends, NewOllama("", ""))
	}
	return NewChain(logger, backends...)
}

func hostSet() bool {
	return OllamaBaseURLFromEnv() != DefaultOllamaBaseURL
}

// Summarize runs the chain. The returned error is always nil; failures
// are logged at Warn and absorbed by the fallback.
func (c *Chain) Summarize(ctx context.Context, events []stream.Event, model string) (string, error) {
	cfg := util.DefaultRetryConfig()
	cfg.MaxAttempts = 2

	for _, backend := range c.backends {
		text, err := util.Retry(ctx, cfg, func() (string, error) {
			return backend.Summarize(ctx, events, model)
		})
		if err == nil && text != "" {
			return text, nil
		}
		c.logger.Warn("summarizer backend failed, trying next", zap.Error(err))
	}
	return c.fallback.Summarize(ctx, events, model)
}
