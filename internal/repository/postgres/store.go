package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ledger-repository"

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db   *sql.DB
	q    Querier
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Accounts() repository.AccountRepository {
	return NewPostgresAccountRepository(s.q)
}

func (s *Store) Books() repository.BookRepository {
	return NewPostgresBookRepository(s.q)
}

func (s *Store) Purchases() repository.PurchaseRepository {
	return NewPostgresPurchaseRepository(s.q)
}

func (s *Store) Deposits() repository.DepositRepository {
	return NewPostgresDepositRepository(s.q)
}

func (s *Store) Withdrawals() repository.WithdrawalRepository {
	return NewPostgresWithdrawalRepository(s.q)
}

func (s *Store) Revenue() repository.RevenueRepository {
	return NewPostgresRevenueRepository(s.q)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	ctx, done := instrument(ctx, "WithinTx")
	defer done(&err)

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "WithinTx", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if fnErr := fn(&Store{db: s.db, q: dbTx, inTx: true}); fnErr != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "WithinTx", "error", rbErr)
			return fmt.Errorf("rollback failed: %v; original error: %w", rbErr, fnErr)
		}
		return fnErr
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "WithinTx", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) ResolveTransaction(ctx context.Context, transactionID string) (ref models.TransactionRef, err error) {
	ctx, done := instrument(ctx, "ResolveTransaction", attribute.String("transaction_id", transactionID))
	defer done(&err)

	query := `
		SELECT 'purchase', payment_method FROM purchases WHERE transaction_id = $1
		UNION ALL
		SELECT 'deposit', 'mobile_money' FROM deposits WHERE transaction_id = $1
		LIMIT 1`
	ref.ID = transactionID
	err = s.q.QueryRowContext(ctx, query, transactionID).Scan(&ref.Kind, &ref.Method)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.TransactionRef{}, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to resolve transaction", "method", "ResolveTransaction", "transaction_id", transactionID, "error", err)
		return models.TransactionRef{}, fmt.Errorf("failed to resolve transaction: %w", err)
	}
	return ref, nil
}

// instrument starts a span and returns a func recording metrics and ending
// the span with the final value of the caller's error.
func instrument(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, method, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(errp *error) {
		status := "success"
		if errp != nil && *errp != nil {
			status = "error"
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		observability.RepositoryCalls.WithLabelValues(method, status).Inc()
		observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == "23505"
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
