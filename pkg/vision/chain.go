package vision

import (
	"context"
	"log/slog"
)

// Chain tries enrichers in order; the first success wins.
type Chain struct {
	providers []Enricher
	logger    *slog.Logger
}

// NewChain creates a chain. At least one provider is required.
func NewChain(logger *slog.Logger, providers ...Enricher) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger.With("component", "vision.chain")}, nil
}

// Analyze tries each provider until one succeeds.
func (c *Chain) Analyze(ctx context.Context, jpeg []byte) (*Report, error) {
	var errs []error

	for i, p := range c.providers {
		report, err := p.Analyze(ctx, jpeg)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded", "provider_index", i)
			}
			return report, nil
		}

		errs = append(errs, err)
		c.logger.Warn("provider failed, trying next", "provider_index", i, "error", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Verify Chain implements Enricher at compile time.
var _ Enricher = (*Chain)(nil)
