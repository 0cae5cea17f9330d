package nats

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/resilience"
)

const publishOperation = "nats.publish"

type messagePublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher announces generated digests on a single subject. Publishing is fire-and-forget;
// the server never acknowledges.
type Publisher struct {
	nc       *nats.Conn
	conn     messagePublisher
	subject  string
	breakers *resilience.Breakers
}

// Options zero values fall back to a short connect timeout and background reconnects.
type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// FailFast makes the constructor fail when the server is down instead of connecting later.
	FailFast bool
	Breakers *resilience.Breakers
}

func New(url, subject string) (*Publisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Publisher, error) {
	nc, err := nats.Connect(url, connectOptions(options)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	slog.Info("digest_publisher_ready", "subject", subject, "connected", nc.IsConnected())
	return &Publisher{nc: nc, conn: nc, subject: subject, breakers: options.Breakers}, nil
}

func connectOptions(options Options) []nats.Option {
	return []nats.Option{
		nats.Name("broker-report-digest"),
		nats.Timeout(cmp.Or(options.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(cmp.Or(options.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(cmp.Or(options.MaxReconnects, -1)),
		nats.RetryOnFailedConnect(!options.FailFast),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("digest_publisher_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("digest_publisher_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			slog.Info("digest_publisher_closed")
		}),
	}
}

// Close flushes buffered events before closing the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

func (p *Publisher) PublishDigestGenerated(ctx context.Context, event domain.DigestEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode digest event %s: %w", event.ID, err)
	}

	publish := func(context.Context) error {
		return p.conn.Publish(p.subject, payload)
	}
	if p.breakers != nil {
		err = p.breakers.Do(ctx, publishOperation, publish, publishVerdict)
	} else {
		err = publish(ctx)
	}

	switch {
	case err == nil:
		return nil
	case publishVerdict(err) == resilience.Outage:
		return domain.WrapError(domain.ErrTemporary, "publish digest event", err)
	default:
		return fmt.Errorf("publish digest event: %w", err)
	}
}

func publishVerdict(err error) resilience.Verdict {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Ignore
	case resilience.IsCircuitOpen(err),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrConnectionDraining):
		return resilience.Outage
	default:
		return resilience.Fault
	}
}
