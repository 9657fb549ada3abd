package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeSettler struct {
	mu        sync.Mutex
	confirmed []string
	failed    map[string]string
}

func (s *fakeSettler) ConfirmPayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = append(s.confirmed, id)
	return nil
}

func (s *fakeSettler) FailPayment(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[string]string{}
	}
	s.failed[id] = reason
	return nil
}

type fakeReader struct {
	msgs chan kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error { return nil }

func testLogger() *logging.Logger {
	logging.SetOutput(io.Discard)
	return logging.NewLogger("events-test")
}

func gatewayMessage(t *testing.T, e GatewayEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Topic: "marketplace.gateway", Value: data}
}

func TestKafkaPublisherPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "marketplace.payments", logger: testLogger()}

	payment := models.PendingPayment{
		ID:          "payment_1",
		BuyerID:     7,
		Status:      models.PaymentStatusPaid,
		TotalAmount: decimal.RequireFromString("12.34"),
	}
	event := models.NewPaymentEvent(models.EventPaymentPaid, payment, time.Time{})

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "payment_1", string(msg.Key))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(models.EventPaymentPaid), headers["event_type"])
	assert.Equal(t, event.ID, headers["event_id"])

	var decoded models.PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.True(t, decoded.TotalAmount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, int64(7), decoded.BuyerID)
}

func TestKafkaPublisherReturnsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, logger: testLogger()}

	err := p.Publish(context.Background(), &models.PaymentEvent{Type: models.EventPaymentPending, PaymentID: "payment_2"})
	assert.EqualError(t, err, "broker down")
}

func TestConsumerHandleMessage(t *testing.T) {
	tests := []struct {
		name          string
		msg           func(t *testing.T) kafka.Message
		wantConfirmed []string
		wantFailed    map[string]string
	}{
		{
			name: "succeeded confirms",
			msg: func(t *testing.T) kafka.Message {
				return gatewayMessage(t, GatewayEvent{Type: GatewayPaymentSucceeded, PaymentID: "payment_1"})
			},
			wantConfirmed: []string{"payment_1"},
		},
		{
			name: "failed with reason",
			msg: func(t *testing.T) kafka.Message {
				return gatewayMessage(t, GatewayEvent{Type: GatewayPaymentFailed, PaymentID: "payment_2", Reason: "insufficient funds"})
			},
			wantFailed: map[string]string{"payment_2": "insufficient funds"},
		},
		{
			name: "failed without reason",
			msg: func(t *testing.T) kafka.Message {
				return gatewayMessage(t, GatewayEvent{Type: GatewayPaymentFailed, PaymentID: "payment_3"})
			},
			wantFailed: map[string]string{"payment_3": "declined by gateway"},
		},
		{
			name: "unknown type ignored",
			msg: func(t *testing.T) kafka.Message {
				return gatewayMessage(t, GatewayEvent{Type: "gateway.refund", PaymentID: "payment_4"})
			},
		},
		{
			name: "missing payment id ignored",
			msg: func(t *testing.T) kafka.Message {
				return gatewayMessage(t, GatewayEvent{Type: GatewayPaymentSucceeded})
			},
		},
		{
			name: "garbage ignored",
			msg: func(t *testing.T) kafka.Message {
				return kafka.Message{Value: []byte("{not json")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settler := &fakeSettler{}
			c := &KafkaConsumer{settler: settler, logger: testLogger()}

			c.handleMessage(context.Background(), tt.msg(t))

			assert.Equal(t, tt.wantConfirmed, settler.confirmed)
			assert.Equal(t, tt.wantFailed, settler.failed)
		})
	}
}

func TestConsumerStartStopsOnCancel(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 1)}
	settler := &fakeSettler{}
	c := &KafkaConsumer{reader: reader, settler: settler, logger: testLogger()}

	reader.msgs <- gatewayMessage(t, GatewayEvent{Type: GatewayPaymentSucceeded, PaymentID: "payment_9"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		settler.mu.Lock()
		defer settler.mu.Unlock()
		return len(settler.confirmed) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
