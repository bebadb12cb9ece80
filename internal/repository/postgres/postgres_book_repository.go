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

type PostgresBookRepository struct {
	q Querier
}

func NewPostgresBookRepository(q Querier) *PostgresBookRepository {
	return &PostgresBookRepository{q: q}
}

func (r *PostgresBookRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *models.Book, err error) {
	ctx, done := instrument(ctx, "GetBookByID", attribute.String("book_id", id.String()))
	defer done(&err)

	var b models.Book
	query := `SELECT id, seller_id, title, price, sales FROM books WHERE id = $1`
	err = r.q.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.SellerID, &b.Title, &b.Price, &b.Sales)
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("book not found", "method", "GetByID", "book_id", id)
		return nil, pkgerrors.ErrBookNotFound
	}
	if err != nil {
		slog.Error("failed to get book", "method", "GetByID", "book_id", id, "error", err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}

func (r *PostgresBookRepository) IncrementSales(ctx context.Context, id uuid.UUID) (err error) {
	ctx, done := instrument(ctx, "IncrementSales", attribute.String("book_id", id.String()))
	defer done(&err)

	res, err := r.q.ExecContext(ctx, `UPDATE books SET sales = sales + 1 WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to increment sales", "method", "IncrementSales", "book_id", id, "error", err)
		return fmt.Errorf("failed to increment sales: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrBookNotFound
		return err
	}
	return nil
}
