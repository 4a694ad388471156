package scoring

import (
	"github.com/okian/wodboard/pkg/logger"
)

// Option configures a Comparator or Ranker.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger used for parse warnings.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("scoring")
	}
	return o
}
