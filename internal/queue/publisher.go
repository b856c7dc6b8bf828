package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/service"
)

const publishTimeout = 5 * time.Second

// Publisher forwards booking.created audit events to the booking queue.
// Failures are logged and never reach the caller, so an unreachable broker
// cannot fail an order that has already been committed.
type Publisher struct {
	url    string
	log    *zap.Logger
	dialer func(url string) (*amqp.Connection, error)
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		url: url,
		log: log.Named("booking-publisher"),
		dialer: func(u string) (*amqp.Connection, error) {
			return amqp.DialConfig(u, amqp.Config{Dial: amqp.DefaultDial(publishTimeout)})
		},
	}
}

// Record implements service.AuditSink. Only booking.created events are
// published; everything else is ignored.
func (p *Publisher) Record(ctx context.Context, ev service.AuditEvent) {
	if ev.Type != service.EventBookingCreated {
		return
	}
	msg := EventFromAudit(ev)
	if err := p.Publish(ctx, msg); err != nil {
		p.log.Warn("publish booking event failed",
			zap.Uint64("booking_id", msg.BookingID),
			zap.Int64("order_id", msg.OrderID),
			zap.Error(err))
	}
}

// Publish sends one event to the booking queue as a persistent JSON message.
// A connection is opened per call; booking volume is low and this keeps the
// publisher free of reconnect state.
func (p *Publisher) Publish(ctx context.Context, ev BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := p.dialer(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(BookingQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ch.PublishWithContext(ctx, "", BookingQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    fmt.Sprintf("booking-%d", ev.BookingID),
		Body:         body,
	})
}
