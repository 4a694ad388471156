// Package natsub delivers result mutations published on NATS into the
// mutation queue.
//
// A message body is a JSON {"before": ..., "after": ...} pair. The
// Nats-Msg-Id header, when present and the body carries no delivery_id,
// becomes the delivery id used for de-duplication.
package natsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
)

const (
	defaultSubject = "wodboard.results.mutated"
	defaultGroup   = "wodboard-engine"
	reconnectWait  = 2 * time.Second
)

// Enqueuer accepts mutations for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, m model.Mutation) error
}

// Subscriber consumes mutation messages from a NATS queue group.
type Subscriber struct {
	q       Enqueuer
	subject string
	group   string
	log     logger.Logger

	mu  sync.Mutex
	sub *nats.Subscription
	ctx context.Context
}

// Dial connects to NATS with reconnects enabled.
func Dial(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("wodboard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("natsub.Dial %s: %w: %w", url, ErrConnect, err)
	}
	return nc, nil
}

// New creates a Subscriber feeding q.
func New(q Enqueuer, opts ...Option) *Subscriber {
	s := &Subscriber{
		q:       q,
		subject: defaultSubject,
		group:   defaultGroup,
		log:     logger.Get().Named("natsub"),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe joins the queue group on nc. ctx is attached to every enqueue.
func (s *Subscriber) Subscribe(ctx context.Context, nc *nats.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx

	sub, err := nc.QueueSubscribe(s.subject, s.group, s.handle)
	if err != nil {
		return fmt.Errorf("natsub.Subscribe %s: %w: %w", s.subject, ErrSubscribe, err)
	}
	s.sub = sub
	s.log.Info(ctx, "subscribed", logger.String("subject", s.subject), logger.String("group", s.group))
	return nil
}

// Close drains the subscription.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	return err
}

func (s *Subscriber) handle(msg *nats.Msg) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	m, err := Decode(msg)
	if err != nil {
		s.log.Warn(ctx, "dropping message", logger.String("subject", msg.Subject), logger.Error(err))
		s.reply(ctx, msg, err)
		return
	}
	if err := s.q.Enqueue(ctx, m); err != nil {
		s.log.Error(ctx, "enqueue failed",
			logger.String("delivery_id", m.DeliveryID),
			logger.String("kind", string(m.Kind())),
			logger.Error(err),
		)
		s.reply(ctx, msg, err)
		return
	}
	s.reply(ctx, msg, nil)
}

// reply answers request-style deliveries so a publisher can retry.
func (s *Subscriber) reply(ctx context.Context, msg *nats.Msg, err error) {
	if msg.Reply == "" {
		return
	}
	body := []byte(`{"ok":true}`)
	if err != nil {
		body, _ = json.Marshal(map[string]any{"ok": false, "error": err.Error()})
	}
	if rerr := msg.Respond(body); rerr != nil && !errors.Is(rerr, nats.ErrMsgNotBound) {
		s.log.Warn(ctx, "reply failed", logger.Error(rerr))
	}
}

// Decode parses a mutation message.
func Decode(msg *nats.Msg) (model.Mutation, error) {
	var m model.Mutation
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		return model.Mutation{}, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	if m.DeliveryID == "" && msg.Header != nil {
		m.DeliveryID = msg.Header.Get(nats.MsgIdHdr)
	}
	return m, nil
}

// Encode builds a mutation message for subject. A non-empty delivery id is
// also set as the Nats-Msg-Id header.
func Encode(subject string, m model.Mutation) (*nats.Msg, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("natsub.Encode: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	if m.DeliveryID != "" {
		msg.Header.Set(nats.MsgIdHdr, m.DeliveryID)
	}
	return msg, nil
}
