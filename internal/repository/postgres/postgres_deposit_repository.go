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

const depositColumns = `id, buyer_id, phone, amount, transaction_id, payment_status, created_at, updated_at`

type PostgresDepositRepository struct {
	q Querier
}

func NewPostgresDepositRepository(q Querier) *PostgresDepositRepository {
	return &PostgresDepositRepository{q: q}
}

func scanDeposit(row rowScanner, d *models.Deposit) error {
	return row.Scan(&d.ID, &d.BuyerID, &d.Phone, &d.Amount, &d.TransactionID, &d.Status, &d.CreatedAt, &d.UpdatedAt)
}

func (r *PostgresDepositRepository) Create(ctx context.Context, d *models.Deposit) (err error) {
	ctx, done := instrument(ctx, "CreateDeposit")
	defer done(&err)

	if d == nil {
		err = pkgerrors.ErrNilDeposit
		return err
	}
	if !d.Status.Valid() {
		err = pkgerrors.ErrInvalidPaymentStatus
		return err
	}
	if !d.Amount.IsPositive() {
		err = pkgerrors.ErrInvalidAmount
		return err
	}

	query := `INSERT INTO deposits (buyer_id, phone, amount, transaction_id, payment_status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err = r.q.QueryRowContext(ctx, query, d.BuyerID, d.Phone, d.Amount, d.TransactionID, d.Status).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if isUniqueViolation(err) {
		err = pkgerrors.ErrDuplicateTransaction
		return err
	}
	if err != nil {
		slog.Error("failed to create deposit", "method", "Create", "transaction_id", d.TransactionID, "error", err)
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	slog.Info("deposit created", "method", "Create", "transaction_id", d.TransactionID, "buyer_id", d.BuyerID, "amount", d.Amount)
	return nil
}

func (r *PostgresDepositRepository) GetByTransactionID(ctx context.Context, transactionID string) (_ *models.Deposit, err error) {
	ctx, done := instrument(ctx, "GetDepositByTransactionID", attribute.String("transaction_id", transactionID))
	defer done(&err)

	var d models.Deposit
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE transaction_id = $1`
	err = scanDeposit(r.q.QueryRowContext(ctx, query, transactionID), &d)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get deposit", "method", "GetByTransactionID", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &d, nil
}

func (r *PostgresDepositRepository) Transition(ctx context.Context, transactionID string, status models.PaymentStatus) (_ *models.Deposit, _ bool, err error) {
	ctx, done := instrument(ctx, "TransitionDeposit",
		attribute.String("transaction_id", transactionID),
		attribute.String("status", string(status)),
	)
	defer done(&err)

	if !status.Terminal() {
		err = pkgerrors.ErrInvalidPaymentStatus
		return nil, false, err
	}

	var d models.Deposit
	query := `UPDATE deposits SET payment_status = $1, updated_at = now()
		WHERE transaction_id = $2 AND payment_status = 'pending'
		RETURNING ` + depositColumns
	err = scanDeposit(r.q.QueryRowContext(ctx, query, status, transactionID), &d)
	if stderrors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByTransactionID(ctx, transactionID)
		if getErr != nil {
			err = getErr
			return nil, false, err
		}
		err = nil
		slog.Info("deposit already settled", "method", "Transition", "transaction_id", transactionID, "status", current.Status)
		return current, false, nil
	}
	if err != nil {
		slog.Error("failed to transition deposit", "method", "Transition", "transaction_id", transactionID, "error", err)
		return nil, false, fmt.Errorf("failed to transition deposit: %w", err)
	}

	slog.Info("deposit transitioned", "method", "Transition", "transaction_id", transactionID, "status", status)
	return &d, true, nil
}

func (r *PostgresDepositRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) (_ []models.Deposit, err error) {
	ctx, done := instrument(ctx, "ListDepositsByBuyer", attribute.String("buyer_id", buyerID.String()))
	defer done(&err)

	query := `SELECT ` + depositColumns + ` FROM deposits WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.q.QueryContext(ctx, query, buyerID, normalizeLimit(limit))
	if err != nil {
		slog.Error("failed to list deposits", "method", "ListByBuyer", "buyer_id", buyerID, "error", err)
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	deposits := make([]models.Deposit, 0)
	for rows.Next() {
		var d models.Deposit
		if err = scanDeposit(rows, &d); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deposits: %w", err)
	}
	return deposits, nil
}
