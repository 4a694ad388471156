package repository

import (
	"time"

	"github.com/okian/wodboard/pkg/logger"
)

// DefaultBatchLimit matches the per-batch write limit of the hosted store.
const DefaultBatchLimit = 500

type storeOptions struct {
	batchLimit            int
	metricsUpdateInterval time.Duration
	log                   logger.Logger
}

// Option applies a configuration option to a store.
type Option func(*storeOptions)

// WithBatchLimit caps the number of ops per BatchWrite.
func WithBatchLimit(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.batchLimit = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *storeOptions) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.log = l
		}
	}
}

func newStoreOptions(opts []Option) storeOptions {
	o := storeOptions{
		batchLimit:            DefaultBatchLimit,
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("repository")
	}
	return o
}
