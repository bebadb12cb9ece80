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

const withdrawalColumns = `id, seller_id, amount, fee, net_amount, phone, name, status, COALESCE(admin_notes, ''), created_at, updated_at`

type PostgresWithdrawalRepository struct {
	q Querier
}

func NewPostgresWithdrawalRepository(q Querier) *PostgresWithdrawalRepository {
	return &PostgresWithdrawalRepository{q: q}
}

func scanWithdrawal(row rowScanner, w *models.Withdrawal) error {
	return row.Scan(&w.ID, &w.SellerID, &w.Amount, &w.Fee, &w.NetAmount, &w.Phone, &w.Name, &w.Status, &w.AdminNotes, &w.CreatedAt, &w.UpdatedAt)
}

func (r *PostgresWithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) (err error) {
	ctx, done := instrument(ctx, "CreateWithdrawal")
	defer done(&err)

	if w == nil {
		err = pkgerrors.ErrNilWithdrawal
		return err
	}
	if !w.Status.Valid() {
		err = pkgerrors.ErrInvalidWithdrawalStatus
		return err
	}
	if !w.Amount.IsPositive() {
		err = pkgerrors.ErrInvalidAmount
		return err
	}

	query := `INSERT INTO withdrawals (seller_id, amount, fee, net_amount, phone, name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err = r.q.QueryRowContext(ctx, query, w.SellerID, w.Amount, w.Fee, w.NetAmount, w.Phone, w.Name, w.Status).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		slog.Error("failed to create withdrawal", "method", "Create", "seller_id", w.SellerID, "error", err)
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	slog.Info("withdrawal created", "method", "Create", "id", w.ID, "seller_id", w.SellerID, "amount", w.Amount)
	return nil
}

func (r *PostgresWithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.Withdrawal, err error) {
	ctx, done := instrument(ctx, "GetWithdrawalByID", attribute.String("withdrawal_id", id.String()))
	defer done(&err)

	var w models.Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	err = scanWithdrawal(r.q.QueryRowContext(ctx, query, id), &w)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrWithdrawalNotFound
	}
	if err != nil {
		slog.Error("failed to get withdrawal", "method", "GetByID", "withdrawal_id", id, "error", err)
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

func (r *PostgresWithdrawalRepository) Transition(ctx context.Context, id uuid.UUID, status models.WithdrawalStatus, notes string) (_ *models.Withdrawal, _ bool, err error) {
	ctx, done := instrument(ctx, "TransitionWithdrawal",
		attribute.String("withdrawal_id", id.String()),
		attribute.String("status", string(status)),
	)
	defer done(&err)

	if !status.Valid() || status == models.WithdrawalPending {
		err = pkgerrors.ErrInvalidWithdrawalStatus
		return nil, false, err
	}

	var w models.Withdrawal
	query := `UPDATE withdrawals SET status = $1, admin_notes = NULLIF($2, ''), updated_at = now()
		WHERE id = $3 AND status = 'pending'
		RETURNING ` + withdrawalColumns
	err = scanWithdrawal(r.q.QueryRowContext(ctx, query, status, notes, id), &w)
	if stderrors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			err = getErr
			return nil, false, err
		}
		err = nil
		return current, false, nil
	}
	if err != nil {
		slog.Error("failed to transition withdrawal", "method", "Transition", "withdrawal_id", id, "error", err)
		return nil, false, fmt.Errorf("failed to transition withdrawal: %w", err)
	}

	slog.Info("withdrawal transitioned", "method", "Transition", "withdrawal_id", id, "status", status)
	return &w, true, nil
}

func (r *PostgresWithdrawalRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) (_ []models.Withdrawal, err error) {
	ctx, done := instrument(ctx, "ListWithdrawalsBySeller", attribute.String("seller_id", sellerID.String()))
	defer done(&err)

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE seller_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, sellerID, normalizeLimit(limit))
}

func (r *PostgresWithdrawalRepository) ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) (_ []models.Withdrawal, err error) {
	ctx, done := instrument(ctx, "ListWithdrawalsByStatus", attribute.String("status", string(status)))
	defer done(&err)

	if !status.Valid() {
		err = pkgerrors.ErrInvalidWithdrawalStatus
		return nil, err
	}
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	return r.list(ctx, query, status, normalizeLimit(limit))
}

func (r *PostgresWithdrawalRepository) list(ctx context.Context, query string, args ...any) ([]models.Withdrawal, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list withdrawals", "error", err)
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make([]models.Withdrawal, 0)
	for rows.Next() {
		var w models.Withdrawal
		if err = scanWithdrawal(rows, &w); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}
	return withdrawals, nil
}
