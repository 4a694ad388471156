package engine

import (
	"github.com/okian/wodboard/internal/domain/scoring"
	"github.com/okian/wodboard/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

const defaultTeamLookupConcurrency = 16

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTracer sets the tracer used for entry point spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithTeamLookupConcurrency bounds parallel team reads during a ranking pass.
func WithTeamLookupConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.lookupConcurrency = n
		}
	}
}

// WithRanker replaces the event ranker.
func WithRanker(r *scoring.Ranker) Option {
	return func(e *Engine) {
		if r != nil {
			e.ranker = r
		}
	}
}
