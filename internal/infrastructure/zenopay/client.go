package zenopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	initiatePath = "/api/payments/mobile_money_tanzania"
	statusPath   = "/api/payments/order-status"

	defaultBuyerEmail = "customer@vitabu.com"
	defaultBuyerName  = "Vitabu Customer"

	StatusPending = "PENDING"
)

type Config struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	Timeout    time.Duration
}

type PaymentRequest struct {
	OrderID    string
	Phone      string
	Amount     decimal.Decimal
	BuyerEmail string
	BuyerName  string
}

type PaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

type initiateBody struct {
	OrderID    string      `json:"order_id"`
	BuyerPhone string      `json:"buyer_phone"`
	Amount     json.Number `json:"amount"`
	BuyerEmail string      `json:"buyer_email"`
	BuyerName  string      `json:"buyer_name"`
	WebhookURL string      `json:"webhook_url,omitempty"`
}

type statusEnvelope struct {
	Result string `json:"result"`
	Data   []struct {
		PaymentStatus string `json:"payment_status"`
	} `json:"data"`
}

// Client talks to the ZenoPay mobile-money API.
type Client struct {
	baseURL    string
	apiKey     string
	webhookURL string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// InitiatePayment asks the provider to push a payment prompt to the phone.
func (c *Client) InitiatePayment(ctx context.Context, req PaymentRequest) (_ *PaymentResponse, err error) {
	ctx, span := otel.Tracer("zenopay-client").Start(ctx, "InitiatePayment")
	span.SetAttributes(attribute.String("order_id", req.OrderID))
	defer span.End()
	defer func() { c.record("initiate", span, err) }()

	if c.apiKey == "" {
		err = pkgerrors.ErrProviderNotConfigured
		return nil, err
	}

	// Сумма уходит провайдеру как есть, без округления.
	if !req.Amount.IsPositive() || !models.WholeAmount(req.Amount) {
		err = fmt.Errorf("%w: provider amount must be a positive whole number, got %s", pkgerrors.ErrInvalidAmount, req.Amount)
		return nil, err
	}

	body := initiateBody{
		OrderID:    req.OrderID,
		BuyerPhone: models.ProviderPhone(req.Phone),
		Amount:     json.Number(req.Amount.Truncate(0).String()),
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		WebhookURL: c.webhookURL,
	}
	if body.BuyerEmail == "" {
		body.BuyerEmail = defaultBuyerEmail
	}
	if body.BuyerName == "" {
		body.BuyerName = defaultBuyerName
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initiatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	var resp PaymentResponse
	if err = c.do(httpReq, &resp); err != nil {
		slog.Error("payment initiation failed", "order_id", req.OrderID, "error", err)
		return nil, err
	}
	if resp.OrderID == "" {
		resp.OrderID = req.OrderID
	}

	slog.Info("payment initiated", "order_id", req.OrderID, "provider_status", resp.Status)
	return &resp, nil
}

// OrderStatus returns the provider payment_status for orderID, upper-cased.
// Any response without a SUCCESS envelope reads as PENDING.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (_ string, err error) {
	ctx, span := otel.Tracer("zenopay-client").Start(ctx, "OrderStatus")
	span.SetAttributes(attribute.String("order_id", orderID))
	defer span.End()
	defer func() { c.record("order_status", span, err) }()

	if c.apiKey == "" {
		err = pkgerrors.ErrProviderNotConfigured
		return "", err
	}

	u := c.baseURL + statusPath + "?order_id=" + url.QueryEscape(orderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)

	var env statusEnvelope
	if err = c.do(httpReq, &env); err != nil {
		slog.Error("order status lookup failed", "order_id", orderID, "error", err)
		return "", err
	}

	status := StatusPending
	if env.Result == "SUCCESS" && len(env.Data) > 0 && env.Data[0].PaymentStatus != "" {
		status = strings.ToUpper(env.Data[0].PaymentStatus)
	}
	span.SetAttributes(attribute.String("provider_status", status))
	return status, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", pkgerrors.ErrProviderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %d %s", pkgerrors.ErrProviderFailure, resp.StatusCode, msg.Message)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", pkgerrors.ErrProviderFailure, err)
	}
	return nil
}

func (c *Client) record(operation string, span trace.Span, err error) {
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.ProviderCalls.WithLabelValues(operation, status).Inc()
}
