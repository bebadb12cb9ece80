package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type AccessResult struct {
	Authorized bool   `json:"authorized"`
	BookTitle  string `json:"book_title"`
}

type AccountService interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	PurchaseHistory(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Purchase, error)
	DepositHistory(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Deposit, error)
	WithdrawalHistory(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Withdrawal, error)
	SalesHistory(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Sale, error)
	BookAccess(ctx context.Context, buyerID, bookID uuid.UUID) (*AccessResult, error)
}

type accountService struct {
	store       repository.Store
	redisClient redis.RedisClient
}

func NewAccountService(store repository.Store, redisClient redis.RedisClient) *accountService {
	return &accountService{store: store, redisClient: redisClient}
}

func (s *accountService) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "GetBalance")
	span.SetAttributes(attribute.String("account_id", accountID.String()))
	defer span.End()

	// Сначала проверяем кэш.
	key := redis.BalanceKey(accountID.String())
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, key)
		if err == nil {
			if balance, perr := decimal.NewFromString(cached); perr == nil {
				span.SetAttributes(attribute.Bool("cache_hit", true))
				return balance, nil
			}
			slog.Warn("corrupt cached balance", "account_id", accountID, "value", cached)
		} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
			slog.Warn("balance cache unavailable", "account_id", accountID, "error", err)
		}
	}

	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, err
	}

	// Заполняем кэш только если расчёт не успел записать свежий баланс.
	if s.redisClient != nil {
		if _, err := s.redisClient.SetNX(ctx, key, account.Balance.String(), redis.BalanceTTL); err != nil {
			slog.Warn("failed to cache balance", "account_id", accountID, "error", err)
		}
	}
	return account.Balance, nil
}

func (s *accountService) PurchaseHistory(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Purchase, error) {
	return s.store.Purchases().ListByBuyer(ctx, buyerID, limit)
}

func (s *accountService) DepositHistory(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Deposit, error) {
	return s.store.Deposits().ListByBuyer(ctx, buyerID, limit)
}

func (s *accountService) WithdrawalHistory(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	return s.store.Withdrawals().ListBySeller(ctx, sellerID, limit)
}

func (s *accountService) SalesHistory(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Sale, error) {
	return s.store.Purchases().ListSalesBySeller(ctx, sellerID, limit)
}

// BookAccess grants read access when buyerID holds a completed purchase of bookID.
func (s *accountService) BookAccess(ctx context.Context, buyerID, bookID uuid.UUID) (*AccessResult, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "BookAccess")
	span.SetAttributes(attribute.String("buyer_id", buyerID.String()), attribute.String("book_id", bookID.String()))
	defer span.End()

	book, err := s.store.Books().GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Purchases().HasCompleted(ctx, buyerID, bookID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		return &AccessResult{Authorized: false, BookTitle: book.Title}, pkgerrors.ErrForbidden
	}
	return &AccessResult{Authorized: true, BookTitle: book.Title}, nil
}
