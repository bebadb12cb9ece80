package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/zenopay"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type WebhookPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type ReconcileResult struct {
	TransactionID string               `json:"transaction_id"`
	Status        models.PaymentStatus `json:"status"`
	Applied       bool                 `json:"applied"`
	// Ignored is set for provider statuses that do not settle the record.
	Ignored bool `json:"ignored,omitempty"`
}

type Reconciler interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (*ReconcileResult, error)
}

type reconciler struct {
	store   repository.Store
	settler *settler
	secret  string
}

func NewReconciler(store repository.Store, settler *settler, webhookSecret string) *reconciler {
	return &reconciler{store: store, settler: settler, secret: webhookSecret}
}

func (r *reconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (*ReconcileResult, error) {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "HandleWebhook")
	defer span.End()

	if err := zenopay.VerifySignature(r.secret, body, signature); err != nil {
		span.SetStatus(codes.Error, "signature rejected")
		slog.Warn("webhook rejected", "error", err)
		return nil, err
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		span.SetStatus(codes.Error, "malformed payload")
		return nil, fmt.Errorf("%w: malformed webhook payload", pkgerrors.ErrInvalidInput)
	}
	payload.OrderID = strings.TrimSpace(payload.OrderID)
	if payload.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", pkgerrors.ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("transaction_id", payload.OrderID), attribute.String("provider_status", payload.Status))

	ref, err := r.store.ResolveTransaction(ctx, payload.OrderID)
	if err != nil {
		span.RecordError(err)
		slog.Warn("webhook for unknown transaction", "transaction_id", payload.OrderID, "error", err)
		return nil, err
	}

	to, ok := models.ParseWebhookStatus(payload.Status)
	if !ok {
		current, err := currentStatus(ctx, r.store, ref)
		if err != nil {
			return nil, err
		}
		slog.Info("webhook status ignored", "transaction_id", ref.ID, "provider_status", payload.Status)
		return &ReconcileResult{TransactionID: ref.ID, Status: current, Ignored: true}, nil
	}

	settlement, err := r.settler.settle(ctx, ref, to, SourceWebhook)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		return nil, err
	}
	return &ReconcileResult{TransactionID: ref.ID, Status: settlement.Status, Applied: settlement.Applied}, nil
}

func currentStatus(ctx context.Context, store repository.Store, ref models.TransactionRef) (models.PaymentStatus, error) {
	switch ref.Kind {
	case models.KindPurchase:
		p, err := store.Purchases().GetByTransactionID(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return p.Status, nil
	case models.KindDeposit:
		d, err := store.Deposits().GetByTransactionID(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return d.Status, nil
	}
	return "", fmt.Errorf("%w: unknown transaction kind %q", pkgerrors.ErrInvalidInput, ref.Kind)
}
