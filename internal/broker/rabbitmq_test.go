package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/concertix/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	sent       []published
	declareErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher_DeclaresTopics(t *testing.T) {
	ch := &fakeChannel{}

	p, err := newPublisher(ch)
	require.NoError(t, err)
	assert.Equal(t, Topics, ch.declared)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestNewPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}

	_, err := newPublisher(ch)
	require.Error(t, err)
	assert.True(t, ch.closed)
}

func TestPublishReservation(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch)
	require.NoError(t, err)

	confirmedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	res := &domain.Reservation{
		ID:          uuid.New(),
		UserID:      10,
		ConcertID:   3,
		SeatID:      11,
		SeatLabel:   "A1",
		Status:      domain.ReservationConfirmed,
		Points:      500,
		ConfirmedAt: &confirmedAt,
	}

	require.NoError(t, p.PublishReservation(context.Background(), "reservation.confirmed", res))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "", sent.exchange)
	assert.Equal(t, "reservation.confirmed", sent.key)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, res.ID.String(), sent.msg.MessageId)
	assert.Equal(t, "application/json", sent.msg.ContentType)

	var body ReservationMessage
	require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
	assert.Equal(t, res.ID.String(), body.ReservationID)
	assert.Equal(t, "confirmed", body.Status)
	assert.Equal(t, int64(500), body.Points)
	assert.Empty(t, body.CancelReason)
	require.NotNil(t, body.ConfirmedAt)
	assert.True(t, body.ConfirmedAt.Equal(confirmedAt))
}
