package repository

import (
	"context"

	"go.uber.org/zap"
)

// Propagator applies denormalized-snapshot refreshes to dependent records.
// Failures are logged and never surfaced: a stale mirror is acceptable, a
// failed primary write is not.
type Propagator struct {
	logger *zap.Logger
}

// NewPropagator creates a propagation helper.
func NewPropagator(logger *zap.Logger) *Propagator {
	return &Propagator{logger: logger}
}

// Apply runs one refresh fn per target and logs each failure. It returns the
// number of targets that failed, which callers may use in logs but must not
// turn into an error for the primary operation.
func (p *Propagator) Apply(ctx context.Context, name string, targets []string, apply func(ctx context.Context, target string) error) int {
	failed := 0
	for _, target := range targets {
		if err := apply(ctx, target); err != nil {
			failed++
			p.logger.Warn("propagation target failed",
				zap.String("propagation", name),
				zap.String("target", target),
				zap.Error(err))
		}
	}
	if failed > 0 {
		p.logger.Warn("propagation completed with failures",
			zap.String("propagation", name),
			zap.Int("targets", len(targets)),
			zap.Int("failed", failed))
	}
	return failed
}
