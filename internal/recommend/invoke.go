package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tagrec-backend/internal/llm"
	"tagrec-backend/internal/shared/metrics"
)

const (
	defaultMaxAttempts   = 4
	invokeRetryBaseDelay = 300 * time.Millisecond
)

// Invoker drives recommendation calls across an ordered set of backends:
// the primary first, then any fallbacks. Rate limits back off and retry on
// the same backend, and spending the whole attempt budget ends the
// invocation; transport and parse failures get one retry before the next
// backend takes over; rejections stop everything immediately.
type Invoker struct {
	clients     []llm.Client
	maxAttempts int
	baseDelay   time.Duration

	// sleep is swappable so tests do not wait out real backoffs.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker builds an Invoker over the given backends. maxAttempts bounds
// rate-limit retries per backend; values below one fall back to the default.
func NewInvoker(clients []llm.Client, maxAttempts int) *Invoker {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &Invoker{
		clients:     clients,
		maxAttempts: maxAttempts,
		baseDelay:   invokeRetryBaseDelay,
		sleep:       sleepCtx,
	}
}

// Invoke runs the request to completion and returns the raw backend output
// plus the model that produced it. When every backend is exhausted the
// error wraps ErrBackendUnavailable.
func (inv *Invoker) Invoke(ctx context.Context, input llm.RecommendInput) (json.RawMessage, string, error) {
	if len(inv.clients) == 0 {
		return nil, "", fmt.Errorf("%w: no backends configured", ErrBackendUnavailable)
	}

	var lastErr error
	for _, client := range inv.clients {
		raw, err := inv.invokeOne(ctx, client, input)
		if err == nil {
			return raw, client.Model(), nil
		}
		if llm.IsRejected(err) {
			return nil, "", err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		// Quota exhaustion is terminal for the whole invocation: the
		// attempt budget is spent, and the fallback shares the same
		// quota anyway. Only transport and parse failures move on to
		// the next backend.
		if errors.Is(err, llm.ErrRateLimited) {
			log.Printf("llm rate limit exhausted model=%s", client.Model())
			return nil, "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		lastErr = err
		log.Printf("llm backend exhausted model=%s error=%s", client.Model(), sanitizeError(err))
	}
	return nil, "", fmt.Errorf("%w: %v", ErrBackendUnavailable, lastErr)
}

// invokeOne exhausts a single backend: exponential backoff on rate limits
// up to maxAttempts, one straight retry on anything else retryable.
func (inv *Invoker) invokeOne(ctx context.Context, client llm.Client, input llm.RecommendInput) (json.RawMessage, error) {
	rateAttempts := 0
	failures := 0
	for {
		raw, err := client.Recommend(ctx, input)
		if err == nil {
			return raw, nil
		}
		if llm.IsRejected(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, llm.ErrRateLimited) {
			metrics.IncLLMRateLimited()
			rateAttempts++
			if rateAttempts >= inv.maxAttempts {
				return nil, err
			}
			delay := inv.baseDelay << uint(rateAttempts-1)
			log.Printf("llm rate limited model=%s attempt=%d delay=%s", client.Model(), rateAttempts, delay)
			if err := inv.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		failures++
		if failures >= 2 {
			return nil, err
		}
		log.Printf("llm retry model=%s error=%s", client.Model(), sanitizeError(err))
		if err := inv.sleep(ctx, inv.baseDelay); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
