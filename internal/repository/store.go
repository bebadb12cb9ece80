package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/shopspring/decimal"
)

// Store groups the ledger repositories. Repositories obtained from the Store
// passed to WithinTx's callback share one database transaction.
type Store interface {
	Accounts() AccountRepository
	Books() BookRepository
	Purchases() PurchaseRepository
	Deposits() DepositRepository
	Withdrawals() WithdrawalRepository
	Revenue() RevenueRepository

	// ResolveTransaction finds which table holds transactionID.
	ResolveTransaction(ctx context.Context, transactionID string) (models.TransactionRef, error)

	// WithinTx runs fn in a single transaction, rolled back if fn returns an error.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// ChangeBalance adds delta to the balance unless the result would be negative.
	ChangeBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (newBalance decimal.Decimal, err error)
	AddTotalWithdrawn(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (newTotal decimal.Decimal, err error)
}

type BookRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	IncrementSales(ctx context.Context, id uuid.UUID) error
}

type PurchaseRepository interface {
	Create(ctx context.Context, p *models.Purchase) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Purchase, error)
	// Transition moves a pending purchase to status. applied is false when the
	// purchase was no longer pending; the returned row is then the current one.
	Transition(ctx context.Context, transactionID string, status models.PaymentStatus) (p *models.Purchase, applied bool, err error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Purchase, error)
	ListSalesBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Sale, error)
	HasCompleted(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error)
}

type DepositRepository interface {
	Create(ctx context.Context, d *models.Deposit) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Deposit, error)
	Transition(ctx context.Context, transactionID string, status models.PaymentStatus) (d *models.Deposit, applied bool, err error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Deposit, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	// Transition moves a pending withdrawal to status and stores notes.
	Transition(ctx context.Context, id uuid.UUID, status models.WithdrawalStatus, notes string) (w *models.Withdrawal, applied bool, err error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error)
}

type RevenueRepository interface {
	Record(ctx context.Context, r *models.PlatformRevenue) error
}
