package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/kafka"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/shopspring/decimal"
)

const publishRetries = 3

// balanceChange is collected inside a store transaction and published after commit.
type balanceChange struct {
	accountID uuid.UUID
	balance   decimal.Decimal
	reason    string
}

// eventPublisher writes settled balances through to the cache and emits Kafka events.
// Either dependency may be nil.
type eventPublisher struct {
	producer    kafka.KafkaProducer
	redisClient redis.RedisClient
	retryDelay  time.Duration
}

func NewEventPublisher(producer kafka.KafkaProducer, redisClient redis.RedisClient) *eventPublisher {
	return &eventPublisher{producer: producer, redisClient: redisClient, retryDelay: 100 * time.Millisecond}
}

func (p *eventPublisher) balancesChanged(ctx context.Context, transactionID string, changes []balanceChange) {
	for _, c := range changes {
		if p.redisClient != nil {
			if err := p.redisClient.Set(ctx, redis.BalanceKey(c.accountID.String()), c.balance.String(), redis.BalanceTTL); err != nil {
				slog.Warn("failed to update cached balance", "account_id", c.accountID, "error", err)
			}
		}
		p.send(ctx, kafka.TopicBalanceEvents, c.accountID.String(), models.BalanceEvent{
			EventType:     models.EventBalanceUpdated,
			AccountID:     c.accountID,
			Balance:       c.balance,
			Reason:        c.reason,
			TransactionID: transactionID,
			OccurredAt:    time.Now().UTC(),
		})
	}
}

func (p *eventPublisher) paymentChanged(ctx context.Context, event models.PaymentEvent) {
	event.OccurredAt = time.Now().UTC()
	p.send(ctx, kafka.TopicPaymentEvents, event.TransactionID, event)
}

func (p *eventPublisher) send(ctx context.Context, topic, key string, event any) {
	if p.producer == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal kafka event", "topic", topic, "key", key, "error", err)
		return
	}
	for i := 0; i < publishRetries; i++ {
		if err = p.producer.Send(context.WithoutCancel(ctx), topic, key, value); err == nil {
			return
		}
		time.Sleep(p.retryDelay * time.Duration(i+1))
	}
	slog.Error("failed to send kafka event after retries", "topic", topic, "key", key, "error", err)
}
