package advisor

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/health-advisor/pkg/anthropic"
)

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// testGatewayConfig records backoff waits instead of sleeping.
func testGatewayConfig(waits *[]time.Duration) GatewayConfig {
	cfg := DefaultGatewayConfig()
	cfg.Retry.Sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	cfg.Retry.OnRetry = func(int, error, time.Duration) {}
	return cfg
}

