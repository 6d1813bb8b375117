package embedder

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior for batch calls.
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first
	Delay       time.Duration // Delay before the retry
}

// DefaultRetryConfig retries a failed batch exactly once; after that
// the batch is dropped by the caller.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		Delay:       200 * time.Millisecond,
	}
}

// EmbedBatchWithRetry calls EmbedBatch and retries per the config.
// Retry is skipped on context cancellation.
func EmbedBatchWithRetry(ctx context.Context, e Embedder, texts []string, cfg RetryConfig) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		vectors, err := e.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
	}
	return nil, lastErr
}
