package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/auth"
	"github.com/honeynil/VitabuPayments/internal/models"
	service "github.com/honeynil/VitabuPayments/internal/services"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
)

type Handler struct {
	payments    service.PaymentService
	withdrawals service.WithdrawalService
	accounts    service.AccountService
	reconciler  service.Reconciler
	status      service.StatusChecker
	validate    *validator.Validate
}

func NewHandler(
	payments service.PaymentService,
	withdrawals service.WithdrawalService,
	accounts service.AccountService,
	reconciler service.Reconciler,
	status service.StatusChecker,
) *Handler {
	return &Handler{
		payments:    payments,
		withdrawals: withdrawals,
		accounts:    accounts,
		reconciler:  reconciler,
		status:      status,
		validate:    newValidator(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterPublicRoutes mounts endpoints that need no bearer token. The
// webhook authenticates itself with a signature.
func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/webhooks/zenopay", h.ZenopayWebhook).Methods("POST")
	r.HandleFunc("/payments/status", h.CheckStatus).Methods("POST")
}

// RegisterOptionalAuthRoutes mounts endpoints open to anonymous callers that
// still use the principal when one is present.
func (h *Handler) RegisterOptionalAuthRoutes(r *mux.Router) {
	r.HandleFunc("/purchases", h.InitiatePurchase).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/deposits", h.InitiateDeposit).Methods("POST")
	r.HandleFunc("/purchases/balance", h.ChargeFromBalance).Methods("POST")
	r.HandleFunc("/withdrawals", h.RequestWithdrawal).Methods("POST")
	r.HandleFunc("/balance", h.GetBalance).Methods("GET")
	r.HandleFunc("/history/{kind}", h.GetHistory).Methods("GET")
	r.HandleFunc("/books/{id}/access", h.BookAccess).Methods("GET")
}

func (h *Handler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/admin/withdrawals", h.ListWithdrawals).Methods("GET")
	r.HandleFunc("/admin/withdrawals/{id}/approve", h.ApproveWithdrawal).Methods("POST")
	r.HandleFunc("/admin/withdrawals/{id}/reject", h.RejectWithdrawal).Methods("POST")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// fail maps a service error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	if errors.Is(err, pkgerrors.ErrUnauthorized) ||
		errors.Is(err, pkgerrors.ErrInvalidSignature) ||
		errors.Is(err, pkgerrors.ErrWebhookSecretMissing) {
		return http.StatusUnauthorized
	} else if errors.Is(err, pkgerrors.ErrForbidden) {
		return http.StatusForbidden
	} else if errors.Is(err, pkgerrors.ErrAccountNotFound) ||
		errors.Is(err, pkgerrors.ErrBookNotFound) ||
		errors.Is(err, pkgerrors.ErrTransactionNotFound) ||
		errors.Is(err, pkgerrors.ErrWithdrawalNotFound) {
		return http.StatusNotFound
	} else if errors.Is(err, pkgerrors.ErrWithdrawalNotPending) ||
		errors.Is(err, pkgerrors.ErrPollInProgress) ||
		errors.Is(err, pkgerrors.ErrDuplicateTransaction) {
		return http.StatusConflict
	} else if errors.Is(err, pkgerrors.ErrProviderFailure) ||
		errors.Is(err, pkgerrors.ErrProviderNotConfigured) {
		return http.StatusBadGateway
	} else if errors.Is(err, pkgerrors.ErrInvalidInput) ||
		errors.Is(err, pkgerrors.ErrInvalidAmount) ||
		errors.Is(err, pkgerrors.ErrAmountBelowMinimum) ||
		errors.Is(err, pkgerrors.ErrInvalidPhone) ||
		errors.Is(err, pkgerrors.ErrInvalidName) ||
		errors.Is(err, pkgerrors.ErrPriceMismatch) ||
		errors.Is(err, pkgerrors.ErrInsufficientFunds) ||
		errors.Is(err, pkgerrors.ErrInvalidPaymentStatus) ||
		errors.Is(err, pkgerrors.ErrInvalidWithdrawalStatus) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// principal returns the authenticated caller or writes 401.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, pkgerrors.ErrUnauthorized)
	}
	return p, ok
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, pkgerrors.ErrInvalidInput
	}
	return limit, nil
}
