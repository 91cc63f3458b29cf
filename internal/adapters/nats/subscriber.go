package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

var _ ports.EventSubscriber = (*Subscriber)(nil)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber connects to NATS. durable names a push consumer delivered
// to a queue group of the same name, so API replicas using the same durable
// split the position events between them.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// positionConsumerConfig describes the shared durable consumer. The
// delivery subject is fixed so every replica binds to the same consumer.
func positionConsumerConfig(durable string) *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:        durable,
		DeliverSubject: deliverPrefix + durable,
		DeliverGroup:   durable,
		DeliverPolicy:  nats.DeliverNewPolicy,
		AckPolicy:      nats.AckExplicitPolicy,
		MaxDeliver:     3,
		FilterSubject:  PositionSubjects,
	}
}

// ensureConsumer creates the durable consumer unless it already exists.
// A consumer created here is not owned by the subscription, so closing the
// subscriber leaves it and its delivery position on the server.
func (s *Subscriber) ensureConsumer() error {
	_, err := s.js.ConsumerInfo(PositionStream, s.durable)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrConsumerNotFound) {
		return fmt.Errorf("consumer info %s: %w", s.durable, err)
	}
	if _, err := s.js.AddConsumer(PositionStream, positionConsumerConfig(s.durable)); err != nil {
		return fmt.Errorf("add consumer %s: %w", s.durable, err)
	}
	return nil
}

// SubscribePositions delivers position events to handler. A message that
// fails to decode is terminated; a handler error is redelivered up to
// three times.
func (s *Subscriber) SubscribePositions(ctx context.Context, handler func(ctx context.Context, pos *domain.Position) error) error {
	if err := s.ensureConsumer(); err != nil {
		return err
	}
	sub, err := s.js.QueueSubscribe(PositionSubjects, s.durable, func(msg *nats.Msg) {
		var pos domain.Position
		if err := json.Unmarshal(msg.Data, &pos); err != nil {
			slog.Warn("drop malformed position event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &pos); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Bind(PositionStream, s.durable),
		nats.ManualAck(),
	)
	if err != nil {
		return fmt.Errorf("subscribe positions: %w", err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close drains the subscriptions and the connection. The durable consumer
// stays on the server.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	_ = s.conn.Drain()
}
