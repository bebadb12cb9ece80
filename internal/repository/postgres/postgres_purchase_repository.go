package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const purchaseColumns = `id, book_id, buyer_id, COALESCE(buyer_phone, ''), amount, transaction_id, payment_method, payment_status, created_at, updated_at`

type PostgresPurchaseRepository struct {
	q Querier
}

func NewPostgresPurchaseRepository(q Querier) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{q: q}
}

func scanPurchase(row rowScanner, p *models.Purchase) error {
	return row.Scan(&p.ID, &p.BookID, &p.BuyerID, &p.BuyerPhone, &p.Amount, &p.TransactionID, &p.Method, &p.Status, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PostgresPurchaseRepository) Create(ctx context.Context, p *models.Purchase) (err error) {
	ctx, done := instrument(ctx, "CreatePurchase")
	defer done(&err)

	if p == nil {
		err = pkgerrors.ErrNilPurchase
		return err
	}
	if !p.Status.Valid() {
		err = pkgerrors.ErrInvalidPaymentStatus
		slog.Error("invalid payment status", "method", "Create", "status", p.Status, "error", err)
		return err
	}
	if p.Amount.IsNegative() {
		err = pkgerrors.ErrInvalidAmount
		return err
	}

	query := `INSERT INTO purchases (book_id, buyer_id, buyer_phone, amount, transaction_id, payment_method, payment_status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err = r.q.QueryRowContext(ctx, query, p.BookID, p.BuyerID, p.BuyerPhone, p.Amount, p.TransactionID, p.Method, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		err = pkgerrors.ErrDuplicateTransaction
		return err
	}
	if err != nil {
		slog.Error("failed to create purchase", "method", "Create", "transaction_id", p.TransactionID, "error", err)
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	slog.Info("purchase created", "method", "Create", "transaction_id", p.TransactionID, "book_id", p.BookID, "status", p.Status)
	return nil
}

func (r *PostgresPurchaseRepository) GetByTransactionID(ctx context.Context, transactionID string) (_ *models.Purchase, err error) {
	ctx, done := instrument(ctx, "GetPurchaseByTransactionID", attribute.String("transaction_id", transactionID))
	defer done(&err)

	var p models.Purchase
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE transaction_id = $1`
	err = scanPurchase(r.q.QueryRowContext(ctx, query, transactionID), &p)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get purchase", "method", "GetByTransactionID", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &p, nil
}

// Transition only matches rows still pending. When nothing matched the
// current row is returned with applied=false.
func (r *PostgresPurchaseRepository) Transition(ctx context.Context, transactionID string, status models.PaymentStatus) (_ *models.Purchase, _ bool, err error) {
	ctx, done := instrument(ctx, "TransitionPurchase",
		attribute.String("transaction_id", transactionID),
		attribute.String("status", string(status)),
	)
	defer done(&err)

	if !status.Terminal() {
		err = pkgerrors.ErrInvalidPaymentStatus
		return nil, false, err
	}

	var p models.Purchase
	query := `UPDATE purchases SET payment_status = $1, updated_at = now()
		WHERE transaction_id = $2 AND payment_status = 'pending'
		RETURNING ` + purchaseColumns
	err = scanPurchase(r.q.QueryRowContext(ctx, query, status, transactionID), &p)
	if stderrors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByTransactionID(ctx, transactionID)
		if getErr != nil {
			err = getErr
			return nil, false, err
		}
		err = nil
		slog.Info("purchase already settled", "method", "Transition", "transaction_id", transactionID, "status", current.Status)
		return current, false, nil
	}
	if err != nil {
		slog.Error("failed to transition purchase", "method", "Transition", "transaction_id", transactionID, "error", err)
		return nil, false, fmt.Errorf("failed to transition purchase: %w", err)
	}

	slog.Info("purchase transitioned", "method", "Transition", "transaction_id", transactionID, "status", status)
	return &p, true, nil
}

func (r *PostgresPurchaseRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) (_ []models.Purchase, err error) {
	ctx, done := instrument(ctx, "ListPurchasesByBuyer", attribute.String("buyer_id", buyerID.String()))
	defer done(&err)

	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.q.QueryContext(ctx, query, buyerID, normalizeLimit(limit))
	if err != nil {
		slog.Error("failed to list purchases", "method", "ListByBuyer", "buyer_id", buyerID, "error", err)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]models.Purchase, 0)
	for rows.Next() {
		var p models.Purchase
		if err = scanPurchase(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}
	return purchases, nil
}

func (r *PostgresPurchaseRepository) ListSalesBySeller(ctx context.Context, sellerID uuid.UUID, limit int) (_ []models.Sale, err error) {
	ctx, done := instrument(ctx, "ListSalesBySeller", attribute.String("seller_id", sellerID.String()))
	defer done(&err)

	query := `SELECT p.id, p.book_id, p.buyer_id, COALESCE(p.buyer_phone, ''), p.amount, p.transaction_id,
			p.payment_method, p.payment_status, p.created_at, p.updated_at, b.title
		FROM purchases p
		JOIN books b ON b.id = p.book_id
		WHERE b.seller_id = $1 AND p.payment_status = 'completed'
		ORDER BY p.created_at DESC
		LIMIT $2`
	rows, err := r.q.QueryContext(ctx, query, sellerID, normalizeLimit(limit))
	if err != nil {
		slog.Error("failed to list sales", "method", "ListSalesBySeller", "seller_id", sellerID, "error", err)
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]models.Sale, 0)
	for rows.Next() {
		var s models.Sale
		p := &s.Purchase
		if err = rows.Scan(&p.ID, &p.BookID, &p.BuyerID, &p.BuyerPhone, &p.Amount, &p.TransactionID, &p.Method, &p.Status, &p.CreatedAt, &p.UpdatedAt, &s.BookTitle); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales: %w", err)
	}
	return sales, nil
}

func (r *PostgresPurchaseRepository) HasCompleted(ctx context.Context, buyerID, bookID uuid.UUID) (_ bool, err error) {
	ctx, done := instrument(ctx, "HasCompletedPurchase",
		attribute.String("buyer_id", buyerID.String()),
		attribute.String("book_id", bookID.String()),
	)
	defer done(&err)

	var ok bool
	query := `SELECT EXISTS(SELECT 1 FROM purchases WHERE buyer_id = $1 AND book_id = $2 AND payment_status = 'completed')`
	if err = r.q.QueryRowContext(ctx, query, buyerID, bookID).Scan(&ok); err != nil {
		slog.Error("failed to check purchase", "method", "HasCompleted", "buyer_id", buyerID, "book_id", bookID, "error", err)
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return ok, nil
}
