package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	declareErr error
	published  []amqp.Publishing
	keys       []string
	publishFn  func() error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishFn != nil {
		if err := f.publishFn(); err != nil {
			return err
		}
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return nil, errors.New("not used")
}

func (f *fakeChannel) Cancel(string, bool) error { return nil }

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeAcknowledger struct {
	mu       sync.Mutex
	acks     int
	nacks    int
	requeued bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func TestNewRabbitMQClient_RequiresURL(t *testing.T) {
	_, err := NewRabbitMQClient(RabbitMQConfig{URL: "  "})
	assert.Error(t, err)
}

func TestRabbitMQClient_Publish(t *testing.T) {
	ch := &fakeChannel{}
	client := &RabbitMQClient{channel: ch}

	id, err := client.Publish(context.Background(), "shareit.booking-events", []byte(`{"type":"booking.created"}`), map[string]string{"type": "booking.created"})
	require.NoError(t, err)

	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"shareit.booking-events"}, ch.declared)
	require.Len(t, ch.published, 1)
	assert.Equal(t, "shareit.booking-events", ch.keys[0])

	msg := ch.published[0]
	assert.Equal(t, id, msg.MessageId)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "booking.created", msg.Headers["type"])
}

// 同じキューへの2回目以降の送信ではキュー宣言を繰り返さないことを検証
func TestRabbitMQClient_Publish_DeclaresQueueOnce(t *testing.T) {
	ch := &fakeChannel{}
	client := &RabbitMQClient{channel: ch}
	ctx := context.Background()

	for range 3 {
		_, err := client.Publish(ctx, "shareit.booking-events", []byte("{}"), nil)
		require.NoError(t, err)
	}
	_, err := client.Publish(ctx, "shareit.audit", []byte("{}"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"shareit.booking-events", "shareit.audit"}, ch.declared)
	assert.Len(t, ch.published, 4)
}

// 宣言に失敗したキューは記憶されず、次回の送信で再度宣言されることを検証
func TestRabbitMQClient_Publish_RetriesFailedDeclare(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	client := &RabbitMQClient{channel: ch}

	_, err := client.Publish(context.Background(), "q", []byte("x"), nil)
	require.Error(t, err)
	assert.Empty(t, ch.published)

	ch.declareErr = nil
	_, err = client.Publish(context.Background(), "q", []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, ch.declared)
}

func TestRabbitMQClient_Publish_EmptyQueue(t *testing.T) {
	client := &RabbitMQClient{channel: &fakeChannel{}}
	_, err := client.Publish(context.Background(), "", nil, nil)
	assert.Error(t, err)
}

func TestRabbitMQClient_Publish_BrokerError(t *testing.T) {
	brokerErr := errors.New("channel closed")
	client := &RabbitMQClient{channel: &fakeChannel{publishFn: func() error { return brokerErr }}}

	_, err := client.Publish(context.Background(), "q", []byte("x"), nil)
	assert.ErrorIs(t, err, brokerErr)
}

func TestRabbitMQClient_Close(t *testing.T) {
	ch := &fakeChannel{}
	client := &RabbitMQClient{channel: ch}
	assert.NoError(t, client.Close())
	assert.True(t, ch.closed)
}

// 処理に成功したメッセージはack、失敗したメッセージは再キューイング付きでnackされることを検証
func TestConsume_AckAndNack(t *testing.T) {
	ack := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: ack, MessageId: "ok", Body: []byte("1")}
	deliveries <- amqp.Delivery{Acknowledger: ack, MessageId: "fail", Body: []byte("2"), Headers: amqp.Table{"type": "booking.created"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received []Message
	done := make(chan error, 1)
	go func() {
		done <- consume(ctx, deliveries, func(_ context.Context, msg Message) error {
			received = append(received, msg)
			if len(received) == 2 {
				cancel()
			}
			if msg.ID == "fail" {
				return errors.New("handler failed")
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop after cancel")
	}

	require.Len(t, received, 2)
	assert.Equal(t, "booking.created", received[1].Attributes["type"])
	assert.Equal(t, 1, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued)
}

func TestConsume_ClosedChannel(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	err := consume(context.Background(), deliveries, func(context.Context, Message) error { return nil })
	assert.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))
	attrs := headersToAttributes(amqp.Table{"s": "v", "b": []byte("raw"), "n": int32(3)})
	assert.Equal(t, map[string]string{"s": "v", "b": "raw", "n": "3"}, attrs)
}
