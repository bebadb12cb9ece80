package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresRevenueRepository struct {
	q Querier
}

func NewPostgresRevenueRepository(q Querier) *PostgresRevenueRepository {
	return &PostgresRevenueRepository{q: q}
}

func (r *PostgresRevenueRepository) Record(ctx context.Context, rev *models.PlatformRevenue) (err error) {
	ctx, done := instrument(ctx, "RecordRevenue",
		attribute.String("source", string(rev.Source)),
		attribute.String("reference", rev.Reference),
	)
	defer done(&err)

	if rev.Amount.IsNegative() {
		err = pkgerrors.ErrInvalidAmount
		return err
	}

	query := `INSERT INTO platform_revenue (source, reference, amount) VALUES ($1, $2, $3) RETURNING id, created_at`
	err = r.q.QueryRowContext(ctx, query, rev.Source, rev.Reference, rev.Amount).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		slog.Error("failed to record revenue", "method", "Record", "source", rev.Source, "reference", rev.Reference, "error", err)
		return fmt.Errorf("failed to record revenue: %w", err)
	}
	return nil
}
