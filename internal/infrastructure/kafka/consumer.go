package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/segmentio/kafka-go"
)

// Consumer refreshes cached balances when any instance publishes a balance change.
type Consumer struct {
	reader *kafka.Reader
	cache  redis.RedisClient
}

func NewConsumer(brokers []string, groupID string, cache redis.RedisClient) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    TopicBalanceEvents,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		cache: cache,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped", "topic", TopicBalanceEvents)
				return
			}
			slog.Error("failed to read Kafka message", "topic", TopicBalanceEvents, "error", err)
			continue
		}

		if err := c.Handle(ctx, msg.Value); err != nil {
			slog.Error("failed to handle balance event", "key", string(msg.Key), "error", err)
		}
	}
}

func (c *Consumer) Handle(ctx context.Context, value []byte) error {
	var event models.BalanceEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal balance event: %w", err)
	}
	if event.EventType != models.EventBalanceUpdated {
		slog.Debug("skipping event", "event_type", event.EventType)
		return nil
	}

	// События одного счёта идут в одну партицию, поэтому порядок сохраняется.
	if err := c.cache.Set(ctx, redis.BalanceKey(event.AccountID.String()), event.Balance.String(), redis.BalanceTTL); err != nil {
		return fmt.Errorf("failed to refresh balance cache: %w", err)
	}
	slog.Info("balance cache refreshed", "account_id", event.AccountID, "reason", event.Reason)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
