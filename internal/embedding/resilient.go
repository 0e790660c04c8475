package embedding

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/resilience"
)

// ResilientConfig bounds each embedding call.
type ResilientConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	Breaker     resilience.CircuitBreakerConfig
}

// Resilient wraps an Embedder so that every call runs under a per-attempt
// timeout, is retried with backoff and passes through a circuit breaker.
// Dimension mismatches and invalid parameters are not retried.
type Resilient struct {
	next    Embedder
	cfg     ResilientConfig
	breaker *resilience.CircuitBreaker
}

func NewResilient(next Embedder, cfg ResilientConfig) *Resilient {
	return &Resilient{
		next:    next,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("embedding", cfg.Breaker),
	}
}

// Healthy reports an error while the circuit breaker is not closed.
func (r *Resilient) Healthy(ctx context.Context) error {
	return r.breaker.Healthy(ctx)
}

func (r *Resilient) Dimension() int {
	return r.next.Dimension()
}

func (r *Resilient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := r.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (r *Resilient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	retryCfg := resilience.RetryConfig{MaxAttempts: r.cfg.MaxAttempts}
	err := resilience.Retry(ctx, "embed-texts", retryCfg, func() error {
		var out [][]float32
		err := r.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, r.cfg.Timeout, "embed-texts", func(ctx context.Context) error {
				var err error
				out, err = r.next.EmbedTexts(ctx, texts)
				if errors.Is(err, apperrors.ErrEmbeddingDimensionMismatch) || errors.Is(err, apperrors.ErrInvalidParameter) {
					return resilience.Permanent(err)
				}
				return err
			})
		})
		if err == nil {
			vectors = out
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
