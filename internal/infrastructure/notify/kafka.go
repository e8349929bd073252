// Package notify delivers order notifications drained from the outbox.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/segmentio/kafka-go"
)

// message is the wire form of a notification on the topic.
type message struct {
	ID          string         `json:"id"`
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	EventType   string         `json:"event_type"`
	Status      string         `json:"status"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

// KafkaNotifier publishes notifications keyed by order ID, so every event of
// one order lands on the same partition in the order it was written.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(cfg config.KafkaConfig) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.BrokerList()...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n domain.Notification) error {
	msg, err := toKafkaMessage(n)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

func toKafkaMessage(n domain.Notification) (kafka.Message, error) {
	value, err := json.Marshal(message{
		ID:          n.ID,
		OrderID:     n.OrderID,
		OrderNumber: n.OrderNumber,
		EventType:   string(n.EventType),
		Status:      string(n.Status),
		Payload:     n.Payload,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	return kafka.Message{
		Key:   []byte(n.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(n.EventType)},
			{Key: "notification_id", Value: []byte(n.ID)},
		},
	}, nil
}

// LogNotifier writes notifications to the log. It stands in for the broker
// when kafka is disabled.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	l.logger.Info("order notification",
		"notification_id", n.ID,
		"order_id", n.OrderID,
		"order_number", n.OrderNumber,
		"event_type", n.EventType,
		"status", n.Status,
	)
	return nil
}
