package service

import (
	"context"
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

// PaymentGateway is the provider surface the services need.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, req zenopay.PaymentRequest) (*zenopay.PaymentResponse, error)
	OrderStatus(ctx context.Context, orderID string) (string, error)
}

type StatusResult struct {
	TransactionID  string               `json:"transaction_id"`
	Status         models.PaymentStatus `json:"status"`
	ProviderStatus string               `json:"provider_status,omitempty"`
}

type StatusChecker interface {
	Check(ctx context.Context, transactionID string) (*StatusResult, error)
}

type statusChecker struct {
	store   repository.Store
	gateway PaymentGateway
	settler *settler
}

func NewStatusChecker(store repository.Store, gateway PaymentGateway, settler *settler) *statusChecker {
	return &statusChecker{store: store, gateway: gateway, settler: settler}
}

// Check reports the stored status of a transaction. Provider-routed records
// are looked up at the provider first and settled when it reports a terminal
// status; a provider error leaves the record pending.
func (c *statusChecker) Check(ctx context.Context, transactionID string) (*StatusResult, error) {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "CheckStatus")
	span.SetAttributes(attribute.String("transaction_id", transactionID))
	defer span.End()

	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", pkgerrors.ErrInvalidInput)
	}

	ref, err := c.store.ResolveTransaction(ctx, transactionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !ref.ProviderRouted() {
		status, err := currentStatus(ctx, c.store, ref)
		if err != nil {
			return nil, err
		}
		return &StatusResult{TransactionID: ref.ID, Status: status}, nil
	}

	providerStatus, err := c.gateway.OrderStatus(ctx, ref.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider lookup failed")
		slog.Error("provider status lookup failed", "transaction_id", ref.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrProviderFailure, err)
	}
	span.SetAttributes(attribute.String("provider_status", providerStatus))

	to, ok := models.ParseProviderStatus(providerStatus)
	if !ok {
		status, err := currentStatus(ctx, c.store, ref)
		if err != nil {
			return nil, err
		}
		return &StatusResult{TransactionID: ref.ID, Status: status, ProviderStatus: providerStatus}, nil
	}

	settlement, err := c.settler.settle(ctx, ref, to, SourceStatusCheck)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &StatusResult{TransactionID: ref.ID, Status: settlement.Status, ProviderStatus: providerStatus}, nil
}
