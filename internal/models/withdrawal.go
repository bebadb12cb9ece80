package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	// WithdrawalCompleted is part of the stored enum; nothing transitions into it.
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalCompleted, WithdrawalRejected:
		return true
	}
	return false
}

type Withdrawal struct {
	ID         uuid.UUID        `json:"id"`
	SellerID   uuid.UUID        `json:"seller_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Fee        decimal.Decimal  `json:"fee"`
	NetAmount  decimal.Decimal  `json:"net_amount"`
	Phone      string           `json:"phone"`
	Name       string           `json:"name"`
	Status     WithdrawalStatus `json:"status"`
	AdminNotes string           `json:"admin_notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
