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
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresAccountRepository struct {
	q Querier
}

func NewPostgresAccountRepository(q Querier) *PostgresAccountRepository {
	return &PostgresAccountRepository{q: q}
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.Account, err error) {
	ctx, done := instrument(ctx, "GetAccountByID", attribute.String("account_id", id.String()))
	defer done(&err)

	var a models.Account
	query := `SELECT id, account_type, COALESCE(name, ''), COALESCE(phone, ''), balance, total_withdrawn, updated_at FROM profiles WHERE id = $1`
	err = r.q.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Type, &a.Name, &a.Phone, &a.Balance, &a.TotalWithdrawn, &a.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("account not found", "method", "GetByID", "account_id", id)
		return nil, pkgerrors.ErrAccountNotFound
	}
	if err != nil {
		slog.Error("failed to get account", "method", "GetByID", "account_id", id, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// ChangeBalance applies delta in a single conditional update, so two
// concurrent debits can never take the balance below zero.
func (r *PostgresAccountRepository) ChangeBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (_ decimal.Decimal, err error) {
	ctx, done := instrument(ctx, "ChangeBalance",
		attribute.String("account_id", id.String()),
		attribute.String("delta", delta.String()),
	)
	defer done(&err)

	var balance decimal.Decimal
	query := `UPDATE profiles SET balance = balance + $1, updated_at = now() WHERE id = $2 AND balance + $1 >= 0 RETURNING balance`
	err = r.q.QueryRowContext(ctx, query, delta, id).Scan(&balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err = r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists); err != nil {
			slog.Error("failed to check account", "method", "ChangeBalance", "account_id", id, "error", err)
			return decimal.Zero, fmt.Errorf("failed to check account: %w", err)
		}
		if !exists {
			err = pkgerrors.ErrAccountNotFound
			return decimal.Zero, err
		}
		err = pkgerrors.ErrInsufficientFunds
		slog.Warn("insufficient funds", "method", "ChangeBalance", "account_id", id, "delta", delta)
		return decimal.Zero, err
	}
	if err != nil {
		slog.Error("failed to change balance", "method", "ChangeBalance", "account_id", id, "error", err)
		return decimal.Zero, fmt.Errorf("failed to change balance: %w", err)
	}

	slog.Info("balance changed", "method", "ChangeBalance", "account_id", id, "delta", delta, "balance", balance)
	return balance, nil
}

func (r *PostgresAccountRepository) AddTotalWithdrawn(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (_ decimal.Decimal, err error) {
	ctx, done := instrument(ctx, "AddTotalWithdrawn", attribute.String("account_id", id.String()))
	defer done(&err)

	if !amount.IsPositive() {
		err = pkgerrors.ErrInvalidAmount
		return decimal.Zero, err
	}

	var total decimal.Decimal
	query := `UPDATE profiles SET total_withdrawn = total_withdrawn + $1, updated_at = now() WHERE id = $2 RETURNING total_withdrawn`
	err = r.q.QueryRowContext(ctx, query, amount, id).Scan(&total)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrAccountNotFound
		return decimal.Zero, err
	}
	if err != nil {
		slog.Error("failed to update total withdrawn", "method", "AddTotalWithdrawn", "account_id", id, "error", err)
		return decimal.Zero, fmt.Errorf("failed to update total withdrawn: %w", err)
	}
	return total, nil
}
