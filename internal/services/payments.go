package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/zenopay"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type InitiateResult struct {
	TransactionID string               `json:"transaction_id"`
	Status        models.PaymentStatus `json:"status"`
	Message       string               `json:"message"`
}

type ChargeResult struct {
	Success       bool                 `json:"success"`
	TransactionID string               `json:"transaction_id"`
	Method        models.PaymentMethod `json:"payment_method"`
	Balance       decimal.Decimal      `json:"balance"`
}

type PaymentService interface {
	InitiateDeposit(ctx context.Context, buyer models.Principal, amount decimal.Decimal, phone string) (*InitiateResult, error)
	// InitiatePurchase accepts a nil buyer for anonymous purchases.
	InitiatePurchase(ctx context.Context, buyer *models.Principal, bookID uuid.UUID, phone string) (*InitiateResult, error)
	ChargeFromBalance(ctx context.Context, buyer models.Principal, bookID uuid.UUID, amount decimal.Decimal) (*ChargeResult, error)
}

// pollStarter is satisfied by *Poller.
type pollStarter interface {
	Start(ctx context.Context, transactionID string) error
}

type paymentService struct {
	store   repository.Store
	gateway PaymentGateway
	poller  pollStarter
	events  *eventPublisher
}

func NewPaymentService(store repository.Store, gateway PaymentGateway, poller pollStarter, events *eventPublisher) *paymentService {
	return &paymentService{store: store, gateway: gateway, poller: poller, events: events}
}

func (s *paymentService) InitiateDeposit(ctx context.Context, buyer models.Principal, amount decimal.Decimal, phone string) (*InitiateResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "InitiateDeposit")
	span.SetAttributes(attribute.String("buyer_id", buyer.AccountID.String()), attribute.String("amount", amount.String()))
	defer span.End()

	phone = strings.TrimSpace(phone)
	if !models.WholeAmount(amount) {
		span.SetStatus(codes.Error, "fractional amount")
		return nil, fmt.Errorf("%w: deposits are whole shillings, got %s", pkgerrors.ErrInvalidAmount, amount)
	}
	if amount.LessThan(models.MinDeposit) {
		span.SetStatus(codes.Error, "amount below minimum")
		return nil, fmt.Errorf("%w: minimum deposit is %s", pkgerrors.ErrAmountBelowMinimum, models.MinDeposit)
	}
	if !models.ValidLocalPhone(phone) {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, pkgerrors.ErrInvalidPhone
	}

	account, err := s.store.Accounts().GetByID(ctx, buyer.AccountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	deposit := &models.Deposit{
		BuyerID:       buyer.AccountID,
		Phone:         phone,
		Amount:        amount,
		TransactionID: models.NewTransactionID(models.KindDeposit, models.MethodMobileMoney),
		Status:        models.StatusPending,
	}
	if err := s.store.Deposits().Create(ctx, deposit); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deposit insert failed")
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}

	if err := s.requestPayment(ctx, deposit.TransactionID, phone, amount, account.Name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider initiation failed")
		return nil, err
	}

	if s.poller != nil {
		if err := s.poller.Start(ctx, deposit.TransactionID); err != nil && !stderrors.Is(err, pkgerrors.ErrPollInProgress) {
			slog.Warn("failed to start status poll", "transaction_id", deposit.TransactionID, "error", err)
		}
	}

	slog.Info("deposit initiated", "transaction_id", deposit.TransactionID, "buyer_id", buyer.AccountID, "amount", amount)
	return &InitiateResult{
		TransactionID: deposit.TransactionID,
		Status:        models.StatusPending,
		Message:       "Payment initiated. Please check your phone.",
	}, nil
}

func (s *paymentService) InitiatePurchase(ctx context.Context, buyer *models.Principal, bookID uuid.UUID, phone string) (*InitiateResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "InitiatePurchase")
	span.SetAttributes(attribute.String("book_id", bookID.String()))
	defer span.End()

	phone = strings.TrimSpace(phone)
	if !models.ValidLocalPhone(phone) {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, pkgerrors.ErrInvalidPhone
	}

	book, err := s.store.Books().GetByID(ctx, bookID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if book.IsFree() {
		return nil, fmt.Errorf("%w: free books are claimed through the balance endpoint", pkgerrors.ErrInvalidAmount)
	}
	if !models.WholeAmount(book.Price) {
		span.SetStatus(codes.Error, "fractional price")
		slog.Error("book price cannot be collected by mobile money", "book_id", bookID, "price", book.Price)
		return nil, fmt.Errorf("%w: book price %s is not a whole amount", pkgerrors.ErrInvalidAmount, book.Price)
	}

	purchase := &models.Purchase{
		BookID:        bookID,
		BuyerPhone:    phone,
		Amount:        book.Price,
		TransactionID: models.NewTransactionID(models.KindPurchase, models.MethodMobileMoney),
		Method:        models.MethodMobileMoney,
		Status:        models.StatusPending,
	}
	if buyer != nil {
		purchase.BuyerID = uuid.NullUUID{UUID: buyer.AccountID, Valid: true}
	}
	if err := s.store.Purchases().Create(ctx, purchase); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purchase insert failed")
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	if err := s.requestPayment(ctx, purchase.TransactionID, phone, book.Price, ""); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider initiation failed")
		return nil, err
	}

	slog.Info("purchase initiated", "transaction_id", purchase.TransactionID, "book_id", bookID, "amount", book.Price)
	return &InitiateResult{
		TransactionID: purchase.TransactionID,
		Status:        models.StatusPending,
		Message:       "Payment initiated. Please check your phone.",
	}, nil
}

// requestPayment calls the provider for a row that is already stored as
// pending. On failure the row stays pending.
func (s *paymentService) requestPayment(ctx context.Context, transactionID, phone string, amount decimal.Decimal, name string) error {
	if s.gateway == nil {
		return pkgerrors.ErrProviderNotConfigured
	}
	_, err := s.gateway.InitiatePayment(ctx, zenopay.PaymentRequest{
		OrderID:   transactionID,
		Phone:     phone,
		Amount:    amount,
		BuyerName: name,
	})
	if err != nil {
		slog.Error("provider initiation failed", "transaction_id", transactionID, "error", err)
		if stderrors.Is(err, pkgerrors.ErrProviderFailure) ||
			stderrors.Is(err, pkgerrors.ErrProviderNotConfigured) ||
			stderrors.Is(err, pkgerrors.ErrInvalidAmount) {
			return err
		}
		return fmt.Errorf("%w: %v", pkgerrors.ErrProviderFailure, err)
	}
	return nil
}

// ChargeFromBalance buys a book with the buyer's balance, or claims it when
// the book is free. Every write happens in one store transaction.
func (s *paymentService) ChargeFromBalance(ctx context.Context, buyer models.Principal, bookID uuid.UUID, amount decimal.Decimal) (*ChargeResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ChargeFromBalance")
	span.SetAttributes(
		attribute.String("buyer_id", buyer.AccountID.String()),
		attribute.String("book_id", bookID.String()),
		attribute.String("amount", amount.String()),
	)
	defer span.End()

	if amount.IsNegative() {
		return nil, pkgerrors.ErrInvalidAmount
	}

	method := models.MethodBalance
	if amount.IsZero() {
		method = models.MethodFree
	}
	result := &ChargeResult{
		TransactionID: models.NewTransactionID(models.KindPurchase, method),
		Method:        method,
	}
	var changes []balanceChange

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		changes = nil
		book, err := tx.Books().GetByID(ctx, bookID)
		if err != nil {
			return err
		}
		if !amount.Equal(book.Price) {
			return fmt.Errorf("%w: expected %s", pkgerrors.ErrPriceMismatch, book.Price)
		}

		if amount.IsPositive() {
			balance, err := tx.Accounts().ChangeBalance(ctx, buyer.AccountID, amount.Neg())
			if err != nil {
				return err
			}
			result.Balance = balance
			changes = append(changes, balanceChange{accountID: buyer.AccountID, balance: balance, reason: "purchase"})
		} else {
			account, err := tx.Accounts().GetByID(ctx, buyer.AccountID)
			if err != nil {
				return err
			}
			result.Balance = account.Balance
		}

		purchase := &models.Purchase{
			BookID:        bookID,
			BuyerID:       uuid.NullUUID{UUID: buyer.AccountID, Valid: true},
			Amount:        amount,
			TransactionID: result.TransactionID,
			Method:        method,
			Status:        models.StatusCompleted,
		}
		if err := tx.Purchases().Create(ctx, purchase); err != nil {
			return err
		}

		change, err := creditSale(ctx, tx, purchase)
		if err != nil {
			return err
		}
		if change != nil {
			if change.accountID == buyer.AccountID {
				result.Balance = change.balance
			}
			changes = append(changes, *change)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance charge failed")
		slog.Warn("balance charge failed", "buyer_id", buyer.AccountID, "book_id", bookID, "amount", amount, "error", err)
		return nil, err
	}

	s.events.balancesChanged(ctx, result.TransactionID, changes)
	s.events.paymentChanged(ctx, models.PaymentEvent{
		EventType:     models.EventPaymentSettled,
		TransactionID: result.TransactionID,
		Kind:          string(models.KindPurchase),
		Status:        string(models.StatusCompleted),
		Amount:        amount,
		Source:        string(method),
	})

	result.Success = true
	slog.Info("book charged from balance", "transaction_id", result.TransactionID, "buyer_id", buyer.AccountID, "book_id", bookID, "method", method)
	return result, nil
}
