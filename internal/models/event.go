package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventBalanceUpdated   = "balance_updated"
	EventPaymentSettled   = "payment_settled"
	EventWithdrawalStatus = "withdrawal_status_changed"
)

// BalanceEvent is published after a committed balance change.
type BalanceEvent struct {
	EventType     string          `json:"event_type"`
	AccountID     uuid.UUID       `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	Reason        string          `json:"reason"`
	TransactionID string          `json:"transaction_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// PaymentEvent is published after a purchase, deposit or withdrawal changes status.
type PaymentEvent struct {
	EventType     string          `json:"event_type"`
	TransactionID string          `json:"transaction_id"`
	Kind          string          `json:"kind"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Source        string          `json:"source,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
