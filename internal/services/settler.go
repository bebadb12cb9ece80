package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SettleSource names what drove a terminal transition.
type SettleSource string

const (
	SourceWebhook     SettleSource = "webhook"
	SourceStatusCheck SettleSource = "status_check"
)

// Settlement is the result of a terminal transition attempt. Applied is
// false when the record was already terminal; Status is then the stored one.
type Settlement struct {
	Ref     models.TransactionRef
	Status  models.PaymentStatus
	Amount  decimal.Decimal
	Applied bool
}

// settler applies pending → completed|failed together with its side effects.
// The webhook reconciler and the status checker share it, so whichever
// arrives second observes applied=false and changes nothing.
type settler struct {
	store  repository.Store
	events *eventPublisher
}

func NewSettler(store repository.Store, events *eventPublisher) *settler {
	return &settler{store: store, events: events}
}

func (s *settler) settle(ctx context.Context, ref models.TransactionRef, to models.PaymentStatus, source SettleSource) (*Settlement, error) {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "Settle")
	span.SetAttributes(
		attribute.String("transaction_id", ref.ID),
		attribute.String("kind", string(ref.Kind)),
		attribute.String("to", string(to)),
		attribute.String("source", string(source)),
	)
	defer span.End()

	if !to.Terminal() {
		return nil, pkgerrors.ErrInvalidPaymentStatus
	}

	result := &Settlement{Ref: ref}
	var changes []balanceChange

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		changes = nil
		switch ref.Kind {
		case models.KindPurchase:
			p, applied, err := tx.Purchases().Transition(ctx, ref.ID, to)
			if err != nil {
				return err
			}
			result.Status, result.Amount, result.Applied = p.Status, p.Amount, applied
			if !applied || to != models.StatusCompleted {
				return nil
			}
			change, err := creditSale(ctx, tx, p)
			if err != nil {
				return err
			}
			if change != nil {
				changes = append(changes, *change)
			}
			return nil

		case models.KindDeposit:
			d, applied, err := tx.Deposits().Transition(ctx, ref.ID, to)
			if err != nil {
				return err
			}
			result.Status, result.Amount, result.Applied = d.Status, d.Amount, applied
			if !applied || to != models.StatusCompleted {
				return nil
			}
			balance, err := tx.Accounts().ChangeBalance(ctx, d.BuyerID, d.Amount)
			if err != nil {
				return fmt.Errorf("failed to credit deposit: %w", err)
			}
			changes = append(changes, balanceChange{accountID: d.BuyerID, balance: balance, reason: "deposit"})
			return nil
		}
		return fmt.Errorf("%w: unknown transaction kind %q", pkgerrors.ErrInvalidInput, ref.Kind)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		observability.SettlementOutcomes.WithLabelValues(string(source), string(ref.Kind), "error").Inc()
		slog.Error("settlement failed", "transaction_id", ref.ID, "kind", ref.Kind, "to", to, "source", source, "error", err)
		return nil, err
	}

	outcome := "noop"
	if result.Applied {
		outcome = string(to)
		s.events.balancesChanged(ctx, ref.ID, changes)
		s.events.paymentChanged(ctx, models.PaymentEvent{
			EventType:     models.EventPaymentSettled,
			TransactionID: ref.ID,
			Kind:          string(ref.Kind),
			Status:        string(result.Status),
			Amount:        result.Amount,
			Source:        string(source),
		})
	}
	observability.SettlementOutcomes.WithLabelValues(string(source), string(ref.Kind), outcome).Inc()
	slog.Info("settlement processed", "transaction_id", ref.ID, "kind", ref.Kind, "status", result.Status, "applied", result.Applied, "source", source)
	return result, nil
}

// creditSale runs the side effects of a completed purchase: the sales
// counter, the seller's 90% share and the platform's 10% revenue row.
func creditSale(ctx context.Context, tx repository.Store, p *models.Purchase) (*balanceChange, error) {
	if err := tx.Books().IncrementSales(ctx, p.BookID); err != nil {
		return nil, fmt.Errorf("failed to increment sales: %w", err)
	}
	if !p.Amount.IsPositive() {
		return nil, nil
	}

	book, err := tx.Books().GetByID(ctx, p.BookID)
	if err != nil {
		return nil, err
	}
	share, fee := models.SplitSale(p.Amount)

	balance, err := tx.Accounts().ChangeBalance(ctx, book.SellerID, share)
	if err != nil {
		return nil, fmt.Errorf("failed to credit seller: %w", err)
	}
	if err := tx.Revenue().Record(ctx, &models.PlatformRevenue{
		Source:    models.RevenuePurchase,
		Reference: p.TransactionID,
		Amount:    fee,
	}); err != nil {
		return nil, err
	}
	return &balanceChange{accountID: book.SellerID, balance: balance, reason: "sale"}, nil
}
