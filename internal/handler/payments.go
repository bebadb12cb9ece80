package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/auth"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/zenopay"
	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Phone  string          `json:"phone" validate:"required,tzphone"`
}

type purchaseRequest struct {
	BookID string `json:"book_id" validate:"required,uuid"`
	Phone  string `json:"phone" validate:"required,tzphone"`
}

type balancePurchaseRequest struct {
	BookID string          `json:"book_id" validate:"required,uuid"`
	Amount decimal.Decimal `json:"amount"`
}

type statusRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=64"`
}

func (h *Handler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := h.decode(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.payments.InitiateDeposit(r.Context(), p, req.Amount, req.Phone)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, result)
}

func (h *Handler) InitiatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := h.decode(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}
	bookID := uuid.MustParse(req.BookID)

	// Анонимная покупка допустима: buyer остаётся nil.
	var buyer *models.Principal
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		buyer = &p
	}

	result, err := h.payments.InitiatePurchase(r.Context(), buyer, bookID, req.Phone)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, result)
}

func (h *Handler) ChargeFromBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req balancePurchaseRequest
	if err := h.decode(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.payments.ChargeFromBalance(r.Context(), p, uuid.MustParse(req.BookID), req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := h.decode(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.status.Check(r.Context(), req.TransactionID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ZenopayWebhook passes the raw body to the reconciler so the signature is
// checked over the exact bytes the provider signed.
func (h *Handler) ZenopayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err))
		return
	}

	result, err := h.reconciler.HandleWebhook(r.Context(), body, r.Header.Get(zenopay.SignatureHeader))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
