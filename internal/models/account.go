package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountSeller AccountType = "seller"
	AccountBuyer  AccountType = "buyer"
)

type Account struct {
	ID             uuid.UUID       `json:"id"`
	Type           AccountType     `json:"account_type"`
	Name           string          `json:"name,omitempty"`
	Phone          string          `json:"phone"`
	Balance        decimal.Decimal `json:"balance"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
