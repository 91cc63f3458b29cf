package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
)

// Subjects and streams.
const (
	ViewSubjectPrefix = "trackmap.view."
	PositionSubjects  = "tracking.position.>"
	PositionStream    = "TRACKING_POSITIONS"
	positionPrefix    = "tracking.position."
	deliverPrefix     = "trackmap.deliver."
)

// ViewSubject is the core NATS subject carrying snapshots of one view.
func ViewSubject(viewID string) string {
	return ViewSubjectPrefix + viewID
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher implements ports.EventPublisher. Snapshots go out on core NATS
// (fire and forget, only live listeners care); positions go to JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the position stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      PositionStream,
		Subjects:  []string{PositionSubjects},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishSnapshot sends a view snapshot to its view subject.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.conn.Publish(ViewSubject(snap.ViewID), data)
}

// PublishPosition stores a position event on the position stream.
func (p *Publisher) PublishPosition(ctx context.Context, pos *domain.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(positionPrefix+strconv.FormatInt(pos.DeviceID, 10), data, nats.Context(ctx))
	return err
}

// Conn returns the underlying connection, shared with the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect opens a plain NATS connection that keeps reconnecting.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
