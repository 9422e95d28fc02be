package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"kernelforge/internal/logging"

	"google.golang.org/genai"
)

const (
	maxRetries     = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// generateWithRetry retries transient failures with exponential backoff
// and jitter, mirroring the teacher's perception/client.go retry loop
// around its provider HTTP calls.
func generateWithRetry(ctx context.Context, client *genai.Client, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			backoff += time.Duration(rand.Int63n(int64(baseBackoff)))

			logging.Get(logging.CategoryLLM).Warnw("retrying generate", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, errors.New("llm: exhausted retries: " + lastErr.Error())
}

// isRetryable treats anything other than a context cancellation as
// worth retrying; the genai client does not expose structured status
// codes uniformly across transports, so this errs toward retrying.
func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
