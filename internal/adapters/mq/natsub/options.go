package natsub

import "github.com/okian/wodboard/pkg/logger"

// Option applies a configuration option to the Subscriber.
type Option func(*Subscriber)

// WithSubject sets the subject mutations are delivered on.
func WithSubject(subject string) Option {
	return func(s *Subscriber) {
		if subject != "" {
			s.subject = subject
		}
	}
}

// WithQueueGroup sets the queue group shared by engine instances.
func WithQueueGroup(group string) Option {
	return func(s *Subscriber) {
		if group != "" {
			s.group = group
		}
	}
}

// WithLogger sets the subscriber logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Subscriber) {
		if l != nil {
			s.log = l
		}
	}
}
