package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	declareErr error
	publishErr error
	closeErr   error

	declaredName string
	published    []amqp.Publishing
	closed       bool
}

func (s *stubChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	s.declaredName = name
	return amqp.Queue{Name: name}, s.declareErr
}

func (s *stubChannel) PublishWithContext(_ context.Context, _ string, key string, _, _ bool, msg amqp.Publishing) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, msg)
	return nil
}

func (s *stubChannel) Close() error {
	s.closed = true
	return s.closeErr
}

type stubConn struct {
	ch         *stubChannel
	channelErr error
	closed     bool
}

func (s *stubConn) Channel() (amqpChannel, error) {
	if s.channelErr != nil {
		return nil, s.channelErr
	}
	return s.ch, nil
}

func (s *stubConn) Close() error {
	s.closed = true
	return nil
}

func restoreDial() {
	amqpDial = func(url string) (amqpConnection, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, err
		}
		return amqpConn{conn}, nil
	}
}

func TestNewAMQPPublisher(t *testing.T) {
	t.Cleanup(restoreDial)

	t.Run("dial fails", func(t *testing.T) {
		amqpDial = func(string) (amqpConnection, error) { return nil, errors.New("dial") }
		_, err := NewAMQPPublisher("amqp://broker")
		require.Error(t, err)
	})

	t.Run("channel fails closes the connection", func(t *testing.T) {
		conn := &stubConn{channelErr: errors.New("chan")}
		amqpDial = func(string) (amqpConnection, error) { return conn, nil }
		_, err := NewAMQPPublisher("amqp://broker")
		require.Error(t, err)
		require.True(t, conn.closed)
	})

	t.Run("declare fails closes everything", func(t *testing.T) {
		ch := &stubChannel{declareErr: errors.New("declare")}
		conn := &stubConn{ch: ch}
		amqpDial = func(string) (amqpConnection, error) { return conn, nil }
		_, err := NewAMQPPublisher("amqp://broker")
		require.Error(t, err)
		require.True(t, ch.closed)
		require.True(t, conn.closed)
	})

	t.Run("declares the durable queue", func(t *testing.T) {
		ch := &stubChannel{}
		conn := &stubConn{ch: ch}
		amqpDial = func(string) (amqpConnection, error) { return conn, nil }
		p, err := NewAMQPPublisher("amqp://broker")
		require.NoError(t, err)
		require.Equal(t, QueueName, ch.declaredName)
		require.NoError(t, p.Close())
		require.True(t, ch.closed)
		require.True(t, conn.closed)
	})
}

func TestAMQPPublisherPublish(t *testing.T) {
	t.Cleanup(restoreDial)
	ch := &stubChannel{}
	conn := &stubConn{ch: ch}
	amqpDial = func(string) (amqpConnection, error) { return conn, nil }
	p, err := NewAMQPPublisher("amqp://broker")
	require.NoError(t, err)

	ev := ReservationEvent{
		Action:          ActionCreated,
		ReservationID:   10,
		UserID:          1,
		ReservationTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Guests:          2,
		OccurredAt:      time.Now().UTC(),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	var got ReservationEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	require.Equal(t, ActionCreated, got.Action)
	require.Equal(t, 10, got.ReservationID)
	require.Equal(t, 2, got.Guests)

	ch.publishErr = errors.New("broker gone")
	require.Error(t, p.Publish(context.Background(), ev))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	require.NoError(t, p.Publish(context.Background(), ReservationEvent{}))
	require.NoError(t, p.Close())
}

func TestFakePublisher(t *testing.T) {
	f := &FakePublisher{}
	require.Panics(t, func() { f.Publish(context.Background(), ReservationEvent{}) })
	require.NoError(t, f.Close())

	var got ReservationEvent
	f.PublishFn = func(_ context.Context, ev ReservationEvent) error {
		got = ev
		return nil
	}
	f.CloseFn = func() error { return errors.New("close") }

	require.NoError(t, f.Publish(context.Background(), ReservationEvent{Action: ActionDeleted}))
	require.Equal(t, ActionDeleted, got.Action)
	require.EqualError(t, f.Close(), "close")
}
