package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type WithdrawalResult struct {
	Withdrawal *models.Withdrawal `json:"withdrawal"`
	Balance    decimal.Decimal    `json:"balance"`
}

type WithdrawalService interface {
	Request(ctx context.Context, seller models.Principal, amount decimal.Decimal, phone, name string) (*WithdrawalResult, error)
	Approve(ctx context.Context, admin models.Principal, id uuid.UUID, notes string) (*models.Withdrawal, error)
	Reject(ctx context.Context, admin models.Principal, id uuid.UUID, notes string) (*models.Withdrawal, error)
	ListByStatus(ctx context.Context, admin models.Principal, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error)
}

type withdrawalService struct {
	store  repository.Store
	events *eventPublisher
}

func NewWithdrawalService(store repository.Store, events *eventPublisher) *withdrawalService {
	return &withdrawalService{store: store, events: events}
}

// Request debits the full amount and stores a pending withdrawal with its
// 5% fee. The debit is rolled back if the insert fails.
func (s *withdrawalService) Request(ctx context.Context, seller models.Principal, amount decimal.Decimal, phone, name string) (*WithdrawalResult, error) {
	tracer := otel.Tracer("withdrawal-service")
	ctx, span := tracer.Start(ctx, "RequestWithdrawal")
	span.SetAttributes(attribute.String("seller_id", seller.AccountID.String()), attribute.String("amount", amount.String()))
	defer span.End()

	phone, name = strings.TrimSpace(phone), strings.TrimSpace(name)
	if !models.WholeAmount(amount) {
		span.SetStatus(codes.Error, "fractional amount")
		return nil, fmt.Errorf("%w: withdrawals are whole shillings, got %s", pkgerrors.ErrInvalidAmount, amount)
	}
	if amount.LessThan(models.MinWithdrawal) {
		span.SetStatus(codes.Error, "amount below minimum")
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", pkgerrors.ErrAmountBelowMinimum, models.MinWithdrawal)
	}
	if !models.ValidLocalPhone(phone) {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, pkgerrors.ErrInvalidPhone
	}
	if name == "" {
		span.SetStatus(codes.Error, "missing name")
		return nil, pkgerrors.ErrInvalidName
	}

	fee, net := models.WithdrawalFee(amount)
	w := &models.Withdrawal{
		SellerID:  seller.AccountID,
		Amount:    amount,
		Fee:       fee,
		NetAmount: net,
		Phone:     phone,
		Name:      name,
		Status:    models.WithdrawalPending,
	}

	var balance decimal.Decimal
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		balance, err = tx.Accounts().ChangeBalance(ctx, seller.AccountID, amount.Neg())
		if err != nil {
			return err
		}
		return tx.Withdrawals().Create(ctx, w)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "withdrawal request failed")
		slog.Warn("withdrawal request failed", "seller_id", seller.AccountID, "amount", amount, "error", err)
		return nil, err
	}

	observability.WithdrawalTransitions.WithLabelValues(string(models.WithdrawalPending)).Inc()
	s.events.balancesChanged(ctx, w.ID.String(), []balanceChange{{accountID: seller.AccountID, balance: balance, reason: "withdrawal_requested"}})
	s.publish(ctx, w)

	slog.Info("withdrawal requested", "withdrawal_id", w.ID, "seller_id", seller.AccountID, "amount", amount, "fee", fee)
	return &WithdrawalResult{Withdrawal: w, Balance: balance}, nil
}

func (s *withdrawalService) Approve(ctx context.Context, admin models.Principal, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	return s.decide(ctx, admin, id, models.WithdrawalApproved, notes)
}

func (s *withdrawalService) Reject(ctx context.Context, admin models.Principal, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	return s.decide(ctx, admin, id, models.WithdrawalRejected, notes)
}

// decide moves a pending withdrawal to approved or rejected. Approval adds
// the net amount to total_withdrawn and records the fee as revenue;
// rejection refunds the full amount.
func (s *withdrawalService) decide(ctx context.Context, admin models.Principal, id uuid.UUID, to models.WithdrawalStatus, notes string) (*models.Withdrawal, error) {
	tracer := otel.Tracer("withdrawal-service")
	ctx, span := tracer.Start(ctx, "DecideWithdrawal")
	span.SetAttributes(attribute.String("withdrawal_id", id.String()), attribute.String("to", string(to)))
	defer span.End()

	if !admin.IsAdmin() {
		span.SetStatus(codes.Error, "forbidden")
		return nil, pkgerrors.ErrForbidden
	}

	var (
		w       *models.Withdrawal
		changes []balanceChange
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		changes = nil
		var (
			applied bool
			err     error
		)
		w, applied, err = tx.Withdrawals().Transition(ctx, id, to, strings.TrimSpace(notes))
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("%w: status is %s", pkgerrors.ErrWithdrawalNotPending, w.Status)
		}

		switch to {
		case models.WithdrawalApproved:
			if _, err := tx.Accounts().AddTotalWithdrawn(ctx, w.SellerID, w.NetAmount); err != nil {
				return err
			}
			return tx.Revenue().Record(ctx, &models.PlatformRevenue{
				Source:    models.RevenueWithdrawal,
				Reference: w.ID.String(),
				Amount:    w.Fee,
			})
		case models.WithdrawalRejected:
			balance, err := tx.Accounts().ChangeBalance(ctx, w.SellerID, w.Amount)
			if err != nil {
				return err
			}
			changes = append(changes, balanceChange{accountID: w.SellerID, balance: balance, reason: "withdrawal_rejected"})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "withdrawal decision failed")
		slog.Warn("withdrawal decision failed", "withdrawal_id", id, "to", to, "admin_id", admin.AccountID, "error", err)
		return nil, err
	}

	observability.WithdrawalTransitions.WithLabelValues(string(to)).Inc()
	s.events.balancesChanged(ctx, w.ID.String(), changes)
	s.publish(ctx, w)

	slog.Info("withdrawal decided", "withdrawal_id", id, "status", to, "admin_id", admin.AccountID)
	return w, nil
}

func (s *withdrawalService) ListByStatus(ctx context.Context, admin models.Principal, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	if !admin.IsAdmin() {
		return nil, pkgerrors.ErrForbidden
	}
	if status == "" {
		status = models.WithdrawalPending
	}
	if !status.Valid() {
		return nil, pkgerrors.ErrInvalidWithdrawalStatus
	}
	return s.store.Withdrawals().ListByStatus(ctx, status, limit)
}

func (s *withdrawalService) publish(ctx context.Context, w *models.Withdrawal) {
	s.events.paymentChanged(ctx, models.PaymentEvent{
		EventType:     models.EventWithdrawalStatus,
		TransactionID: w.ID.String(),
		Kind:          "withdrawal",
		Status:        string(w.Status),
		Amount:        w.Amount,
	})
}
