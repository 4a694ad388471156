// Package worker drains the mutation queue into the scoring engine.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/wodboard/internal/domain/dedupe"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/okian/wodboard/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Handler reacts to a single result mutation. *engine.Engine satisfies it.
type Handler interface {
	OnResultMutated(ctx context.Context, before, after *model.Result) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, before, after *model.Result) error

// OnResultMutated implements Handler.
func (f HandlerFunc) OnResultMutated(ctx context.Context, before, after *model.Result) error {
	return f(ctx, before, after)
}

// Queue defines how workers receive mutations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Mutation
}

// InMemoryWorker feeds dequeued mutations to a Handler one at a time.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	dedupe  dedupe.Deduper
	name    string
	logger  logger.Logger

	processed atomic.Int64
	done      chan struct{}
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		handler: h,
		name:    "worker",
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes mutations until the queue is drained and closed or ctx is
// done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			if err := w.process(ctx, m); err != nil {
				w.logger.Error(ctx, "mutation failed",
					logger.String("delivery_id", m.DeliveryID),
					logger.String("kind", string(m.Kind())),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Processed returns how many mutations reached the handler.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, m model.Mutation) error {
	start := time.Now()
	defer func() { metrics.RecordWorkerProcessingLatency(metrics.Since(start)) }()

	if w.dedupe != nil && m.DeliveryID != "" && w.dedupe.SeenAndRecord(ctx, m.DeliveryID) {
		metrics.RecordDuplicateDelivery()
		w.logger.Debug(ctx, "duplicate delivery dropped", logger.String("delivery_id", m.DeliveryID))
		return nil
	}

	w.processed.Add(1)
	if err := w.handler.OnResultMutated(ctx, m.Before, m.After); err != nil {
		metrics.RecordWorkerError()
		if w.dedupe != nil && m.DeliveryID != "" {
			// let a redelivery retry it
			w.dedupe.Unrecord(ctx, m.DeliveryID)
		}
		return fmt.Errorf("worker %s: %w", w.name, err)
	}
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses
// runtime.NumCPU.
func NewPool(workerCount int, q Queue, h Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, h, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many mutations the pool handed to the handler.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Start starts every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue when it supports it and waits for the workers to
// drain it, bounded by ctx and an overall timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
