package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Book struct {
	ID       uuid.UUID       `json:"id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Sales    int64           `json:"sales"`
}

func (b *Book) IsFree() bool {
	return b.Price.IsZero()
}
