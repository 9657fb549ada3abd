package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
)

// GatewayEventType represents a result reported by the payment gateway.
type GatewayEventType string

const (
	GatewayPaymentSucceeded GatewayEventType = "gateway.payment_succeeded"
	GatewayPaymentFailed    GatewayEventType = "gateway.payment_failed"
)

// GatewayEvent is a payment result received from the gateway topic.
type GatewayEvent struct {
	ID        string           `json:"id"`
	Type      GatewayEventType `json:"type"`
	PaymentID string           `json:"payment_id"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// PaymentSettler applies gateway results to pending payments.
type PaymentSettler interface {
	ConfirmPayment(ctx context.Context, paymentID string) error
	FailPayment(ctx context.Context, paymentID, reason string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer consumes gateway results from Kafka.
type KafkaConsumer struct {
	reader  messageReader
	settler PaymentSettler
	logger  *logging.Logger
}

// NewKafkaConsumer creates a new Kafka-based gateway consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, settler PaymentSettler, logger *logging.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.GatewayTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaConsumer{
		reader:  reader,
		settler: settler,
		logger:  logger,
	}
}

// Start consumes events until ctx is canceled.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Kafka consumer stopped")
				return nil
			}
			c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
			continue
		}

		c.handleMessage(ctx, msg)
	}
}

// Close closes the underlying reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event GatewayEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	if event.PaymentID == "" {
		c.logger.Warn("Ignoring gateway event without payment id", logging.Fields{"event_id": event.ID})
		return
	}

	switch event.Type {
	case GatewayPaymentSucceeded:
		c.logger.Info("Handling gateway success", logging.Fields{"payment_id": event.PaymentID})
		if err := c.settler.ConfirmPayment(ctx, event.PaymentID); err != nil {
			c.logger.Error("Failed to confirm payment", logging.Fields{
				"payment_id": event.PaymentID,
				"error":      err.Error(),
			})
		}
	case GatewayPaymentFailed:
		reason := event.Reason
		if reason == "" {
			reason = "declined by gateway"
		}
		c.logger.Info("Handling gateway failure", logging.Fields{
			"payment_id": event.PaymentID,
			"reason":     reason,
		})
		if err := c.settler.FailPayment(ctx, event.PaymentID, reason); err != nil {
			c.logger.Error("Failed to fail payment", logging.Fields{
				"payment_id": event.PaymentID,
				"error":      err.Error(),
			})
		}
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}
