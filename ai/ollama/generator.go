package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/poiesic/lectern/ai"
)

// timeoutFunc wraps a context with the configured per-call deadline.
type timeoutFunc func(ctx context.Context) (context.Context, context.CancelFunc)

func newTimeoutFunc(d time.Duration) timeoutFunc {
	return func(ctx context.Context) (context.Context, context.CancelFunc) {
		if d <= 0 {
			return context.WithCancel(ctx)
		}
		return context.WithTimeout(ctx, d)
	}
}

// Generator implements ai.Generator using Ollama's chat API.
type Generator struct {
	client      *ollama.LLM
	temperature float64
	topP        float64
	maxTokens   int
	timeout     timeoutFunc
	logger      *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	client, err := ollama.New(
		ollama.WithServerURL(config.BaseURL),
		ollama.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrGenerationFailed, err)
	}

	return &Generator{
		client:      client,
		temperature: config.Temperature,
		topP:        config.TopP,
		maxTokens:   config.MaxTokens,
		timeout:     newTimeoutFunc(config.Timeout),
		logger:      slog.Default().With("component", "ollama-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newGenerator(config)
}

// Generate runs one chat completion and returns the assistant text.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	g.logger.Debug("generating completion", "system_len", len(system), "user_len", len(user))

	ctx, cancel := g.timeout(ctx)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	opts := []llms.CallOption{
		llms.WithTemperature(g.temperature),
		llms.WithTopP(g.topP),
	}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	resp, err := g.client.GenerateContent(ctx, messages, opts...)
	if err != nil {
		g.logger.Error("failed to generate completion", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ai.ErrGenerationFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank completion", ai.ErrGenerationFailed)
	}

	return text, nil
}
