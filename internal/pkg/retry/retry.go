// Package retry wraps avast/retry-go with env-configurable backoff for
// collaborator calls that are safe to repeat.
package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"100ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
}

func (rc RetryConfig) options() []retry.Option {
	attempts := rc.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(rc.Delay),
		retry.MaxDelay(rc.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

// Do runs op until it succeeds, retryIf rejects the error, attempts run out
// or ctx is done. The last error is returned unwrapped.
func Do(ctx context.Context, cfg RetryConfig, op func() error, retryIf func(error) bool) error {
	opts := append(cfg.options(),
		retry.Context(ctx),
		retry.RetryIf(retryIf),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "retrying request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	return retry.Do(op, opts...)
}
