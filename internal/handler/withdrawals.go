package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/honeynil/VitabuPayments/internal/models"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
)

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Phone  string          `json:"phone" validate:"required,tzphone"`
	Name   string          `json:"name" validate:"required,max=120"`
}

type decisionRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

type withdrawalResponse struct {
	ID        uuid.UUID               `json:"id"`
	Status    models.WithdrawalStatus `json:"status"`
	Amount    decimal.Decimal         `json:"amount"`
	Fee       decimal.Decimal         `json:"fee"`
	NetAmount decimal.Decimal         `json:"net_amount"`
	Balance   decimal.Decimal         `json:"balance"`
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := h.decode(r, &req, false); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.withdrawals.Request(r.Context(), p, req.Amount, req.Phone, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, withdrawalResponse{
		ID:        result.Withdrawal.ID,
		Status:    result.Withdrawal.Status,
		Amount:    result.Withdrawal.Amount,
		Fee:       result.Withdrawal.Fee,
		NetAmount: result.Withdrawal.NetAmount,
		Balance:   result.Balance,
	})
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	status := models.WithdrawalStatus(r.URL.Query().Get("status"))
	list, err := h.withdrawals.ListByStatus(r.Context(), p, status, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if list == nil {
		list = []models.Withdrawal{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"withdrawals": list})
}

func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, pkgerrors.ErrWithdrawalNotFound)
		return
	}

	var req decisionRequest
	if err := h.decode(r, &req, true); err != nil {
		h.fail(w, err)
		return
	}

	var wd *models.Withdrawal
	if approve {
		wd, err = h.withdrawals.Approve(r.Context(), p, id, req.Notes)
	} else {
		wd, err = h.withdrawals.Reject(r.Context(), p, id, req.Notes)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wd)
}
