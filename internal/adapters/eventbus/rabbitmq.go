// Package eventbus optionally republishes trace entries onto an AMQP
// exchange so an external dashboard can tail XDR activity live. Like the
// Redis mirror, it is never on the hot path: publishing is fire-and-forget
// and a missing or unreachable broker never blocks or fails a request.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cronos-labs/xdr/pkg/mlog"
)

const exchangeName = "xdr.trace"

// Publisher lazily connects to a RabbitMQ broker and drains a buffered
// channel of trace events onto a fanout exchange.
type Publisher struct {
	connStr string
	logger  mlog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel

	events chan any
	done   chan struct{}
}

// NewPublisher builds a Publisher for connStr. An empty connStr disables the
// publisher entirely: Start is a no-op and Publish drops everything.
func NewPublisher(connStr string, logger mlog.Logger) *Publisher {
	return &Publisher{
		connStr: connStr,
		logger:  logger,
		events:  make(chan any, 512),
		done:    make(chan struct{}),
	}
}

// Enabled reports whether a broker connection string was configured.
func (p *Publisher) Enabled() bool {
	return p.connStr != ""
}

// Start connects to the broker and launches the draining goroutine. Errors
// are logged, not returned: an unreachable broker degrades the publisher to
// a no-op rather than failing startup.
func (p *Publisher) Start(ctx context.Context) {
	if !p.Enabled() {
		return
	}

	conn, err := amqp.Dial(p.connStr)
	if err != nil {
		p.logger.Warnf("eventbus: dial failed, trace publishing disabled: %s", err)
		return
	}

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warnf("eventbus: channel open failed, trace publishing disabled: %s", err)
		_ = conn.Close()

		return
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		p.logger.Warnf("eventbus: exchange declare failed, trace publishing disabled: %s", err)
		_ = ch.Close()
		_ = conn.Close()

		return
	}

	p.conn = conn
	p.ch = ch

	p.logger.Info("eventbus: connected to rabbitmq trace exchange")

	go p.run(ctx)
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.events:
			if !ok {
				return
			}

			p.publish(ctx, event)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event any) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Warnf("eventbus: marshal failed: %s", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	err = p.ch.PublishWithContext(publishCtx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warnf("eventbus: publish failed: %s", err)
	}
}

// Publish enqueues event for the exchange, never blocking the caller. A full
// buffer drops the event.
func (p *Publisher) Publish(event any) {
	if !p.Enabled() {
		return
	}

	select {
	case p.events <- event:
	default:
		p.logger.Warn("eventbus: publish buffer full, dropping trace event")
	}
}

// Close stops accepting events, drains the goroutine, and closes the broker
// connection.
func (p *Publisher) Close() {
	if !p.Enabled() || p.ch == nil {
		return
	}

	close(p.events)
	<-p.done

	if p.ch != nil {
		_ = p.ch.Close()
	}

	if p.conn != nil {
		_ = p.conn.Close()
	}
}
