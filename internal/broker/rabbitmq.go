// Package broker publishes reservation events to RabbitMQ. Each topic is a
// durable queue on the default exchange; messages are persistent JSON.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kirinyoku/concertix/internal/domain"
)

// Topics declared on connect.
var Topics = []string{"reservation.confirmed", "reservation.cancelled"}

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn *amqp.Connection

	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
	ch channel
}

// Dial connects to url and declares every topic queue.
func Dial(url string) (*Publisher, error) {
	const op = "broker.Dial"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	p, err := newPublisher(ch)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	p.conn = conn

	return p, nil
}

func newPublisher(ch channel) (*Publisher, error) {
	for _, q := range Topics {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}

	return &Publisher{ch: ch}, nil
}

// ReservationMessage is the wire form of a reservation event.
type ReservationMessage struct {
	Topic         string     `json:"topic"`
	ReservationID string     `json:"reservation_id"`
	UserID        int64      `json:"user_id"`
	ConcertID     int64      `json:"concert_id"`
	SeatID        int64      `json:"seat_id"`
	SeatLabel     string     `json:"seat_label"`
	Status        string     `json:"status"`
	Points        int64      `json:"points"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func (p *Publisher) PublishReservation(ctx context.Context, topic string, res *domain.Reservation) error {
	const op = "broker.Publisher.PublishReservation"

	body, err := json.Marshal(ReservationMessage{
		Topic:         topic,
		ReservationID: res.ID.String(),
		UserID:        res.UserID,
		ConcertID:     res.ConcertID,
		SeatID:        res.SeatID,
		SeatLabel:     res.SeatLabel,
		Status:        string(res.Status),
		Points:        res.Points,
		CancelReason:  string(res.CancelReason),
		ConfirmedAt:   res.ConfirmedAt,
		CancelledAt:   res.CancelledAt,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    res.ID.String(),
		Timestamp:    time.Now().UTC(),
		Type:         topic,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, "", topic, false, false, msg); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
