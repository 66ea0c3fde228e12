// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	q "github.com/iliyamo/slot-reservation/internal/queue"
)

// Publisher sends reservation events to the broker at url, opening a
// connection per message.
type Publisher struct {
	url string
	log *zap.Logger
}

// New returns a Publisher for url.
func New(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log.Named("publisher")}
}

// ReservationConfirmed publishes the event for r to the reservation.confirmed
// queue.  Messages are persistent.
func (p *Publisher) ReservationConfirmed(ctx context.Context, r model.Reservation) error {
	return p.publish(ctx, q.ReservationQueue, q.NewReservationConfirmedEvent(r))
}

// dialTimeout is the time left before ctx's deadline, capped at the
// library's 30s default.
func dialTimeout(ctx context.Context) time.Duration {
	const limit = 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < limit {
			if left <= 0 {
				return time.Millisecond
			}
			return left
		}
	}
	return limit
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal event failed", zap.Error(err))
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout(ctx))})
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	return nil
}
