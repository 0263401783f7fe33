// Package advisor wraps the language model behind a rate-limit-aware
// gateway and builds the recommendation, comparison, and Q&A calls on top.
package advisor

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/metrics"
	"github.com/sells-group/health-advisor/internal/resilience"
	"github.com/sells-group/health-advisor/pkg/anthropic"
)

// FallbackMessage is returned in place of model output once rate-limit
// retries are exhausted.
const FallbackMessage = "I'm currently experiencing high demand. Please try again in a few minutes."

// ErrModelUnavailable is returned when no model could be configured.
var ErrModelUnavailable = eris.New("advisor: language model unavailable")

// Generator produces text for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GatewayConfig configures the backoff-protected gateway.
type GatewayConfig struct {
	Retry    resilience.RetryConfig
	Fallback string
}

// DefaultGatewayConfig waits 5s, 10s, and 20s across three attempts.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Retry:    resilience.DefaultRetryConfig(),
		Fallback: FallbackMessage,
	}
}

// Gateway retries rate-limited generations with exponential backoff and
// degrades to a fixed fallback text on exhaustion. Other errors propagate
// on the first occurrence.
type Gateway struct {
	gen Generator
	cfg GatewayConfig
}

// NewGateway wraps gen. A nil gen yields a gateway whose calls fail with
// ErrModelUnavailable.
func NewGateway(gen Generator, cfg GatewayConfig) *Gateway {
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackMessage
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			metrics.ModelRateLimitRetries.Inc()
			resilience.RetryLogger("model", "generate")(attempt, err, wait)
		}
	}
	return &Gateway{gen: gen, cfg: cfg}
}

// Available reports whether a model is configured.
func (g *Gateway) Available() bool {
	return g != nil && g.gen != nil
}

// Generate returns model text for prompt. Rate-limit exhaustion is not an
// error: the fallback text is returned as valid output.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Available() {
		return "", ErrModelUnavailable
	}

	text, err := resilience.DoVal(ctx, g.cfg.Retry, func(ctx context.Context) (string, error) {
		return g.gen.Generate(ctx, prompt)
	})
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", eris.Wrap(ctx.Err(), "advisor: generate")
	}
	if resilience.IsRateLimited(err) {
		zap.L().Warn("model retries exhausted, returning fallback",
			zap.Int("attempts", g.cfg.Retry.MaxAttempts),
			zap.Error(err),
		)
		return g.cfg.Fallback, nil
	}
	return "", eris.Wrap(err, "advisor: generate")
}

// AnthropicConfig configures the Anthropic-backed generator.
type AnthropicConfig struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	System      string
	CacheTTL    string
}

// AnthropicGenerator adapts an anthropic.Client to Generator.
type AnthropicGenerator struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropicGenerator validates cfg and returns a generator.
func NewAnthropicGenerator(client anthropic.Client, cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if client == nil {
		return nil, eris.Wrap(ErrModelUnavailable, "advisor: nil anthropic client")
	}
	if cfg.Model == "" {
		return nil, eris.Wrap(ErrModelUnavailable, "advisor: model name is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &AnthropicGenerator{client: client, cfg: cfg}, nil
}

// Generate sends prompt as a single user message.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		System:      anthropic.BuildCachedSystemBlocks(a.cfg.System, a.cfg.CacheTTL),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && resilience.IsRateLimitStatus(apiErr.StatusCode) {
			return "", resilience.NewRateLimitError(err, apiErr.StatusCode)
		}
		return "", err
	}
	resp.Usage.LogCost(a.cfg.Model, "generate")
	return resp.Text(), nil
}
