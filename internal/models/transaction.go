package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type PaymentMethod string

const (
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodBalance     PaymentMethod = "balance"
	MethodFree        PaymentMethod = "free"
)

type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindDeposit  TransactionKind = "deposit"
)

// TransactionRef identifies a payment-bearing record. Kind and Method come
// from the stored row, not from the id.
type TransactionRef struct {
	ID     string          `json:"transaction_id"`
	Kind   TransactionKind `json:"kind"`
	Method PaymentMethod   `json:"method"`
}

// ProviderRouted reports whether the record settles through the mobile-money provider.
func (r TransactionRef) ProviderRouted() bool {
	return r.Method == MethodMobileMoney
}

const (
	prefixProviderPurchase = "VTB"
	prefixDeposit          = "DEP"
	prefixBalancePurchase  = "BAL"
	prefixFreePurchase     = "FREE"
)

// NewTransactionID mints the external correlation key for a new record.
func NewTransactionID(kind TransactionKind, method PaymentMethod) string {
	prefix := prefixProviderPurchase
	switch {
	case kind == KindDeposit:
		prefix = prefixDeposit
	case method == MethodBalance:
		prefix = prefixBalancePurchase
	case method == MethodFree:
		prefix = prefixFreePurchase
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), suffix)
}

// ParseWebhookStatus maps a provider callback status to a terminal status.
// ok is false for statuses that do not settle the transaction.
func ParseWebhookStatus(status string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "completed":
		return StatusCompleted, true
	case "failed", "cancelled":
		return StatusFailed, true
	}
	return "", false
}

// ParseProviderStatus maps the payment_status of an order-status lookup.
func ParseProviderStatus(status string) (PaymentStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETED":
		return StatusCompleted, true
	case "FAILED":
		return StatusFailed, true
	}
	return "", false
}
