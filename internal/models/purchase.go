package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Purchase struct {
	ID            uuid.UUID       `json:"id"`
	BookID        uuid.UUID       `json:"book_id"`
	BuyerID       uuid.NullUUID   `json:"buyer_id"`
	BuyerPhone    string          `json:"buyer_phone"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	Method        PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Purchase) Ref() TransactionRef {
	return TransactionRef{ID: p.TransactionID, Kind: KindPurchase, Method: p.Method}
}

// Sale is a completed purchase seen from the seller side.
type Sale struct {
	Purchase
	BookTitle string `json:"book_title"`
}
