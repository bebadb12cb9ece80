package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RevenueSource string

const (
	RevenuePurchase   RevenueSource = "purchase"
	RevenueWithdrawal RevenueSource = "withdrawal"
)

// PlatformRevenue records a fee retained by the platform.
type PlatformRevenue struct {
	ID        uuid.UUID       `json:"id"`
	Source    RevenueSource   `json:"source"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
