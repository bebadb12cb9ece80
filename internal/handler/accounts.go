package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
)

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	balance, err := h.accounts.GetBalance(r.Context(), p.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// GetHistory serves /history/{purchases|deposits|withdrawals|sales}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	ctx := r.Context()
	var items any
	switch kind := mux.Vars(r)["kind"]; kind {
	case "purchases":
		items, err = h.accounts.PurchaseHistory(ctx, p.AccountID, limit)
	case "deposits":
		items, err = h.accounts.DepositHistory(ctx, p.AccountID, limit)
	case "withdrawals":
		items, err = h.accounts.WithdrawalHistory(ctx, p.AccountID, limit)
	case "sales":
		items, err = h.accounts.SalesHistory(ctx, p.AccountID, limit)
	default:
		h.writeError(w, http.StatusNotFound, errors.New("unknown history kind: "+kind))
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) BookAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	bookID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, pkgerrors.ErrBookNotFound)
		return
	}

	result, err := h.accounts.BookAccess(r.Context(), p.AccountID, bookID)
	if errors.Is(err, pkgerrors.ErrForbidden) && result != nil {
		h.writeJSON(w, http.StatusForbidden, result)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
