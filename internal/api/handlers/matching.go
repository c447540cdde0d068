package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/api/dto"
	"github.com/hazlijohar95/bankfeed/internal/application/reconcile"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// MatchingHandler handles the match lifecycle of bank transactions.
type MatchingHandler struct {
	*Base
	service *reconcile.Service
}

// NewMatchingHandler creates a new matching handler.
func NewMatchingHandler(repo storage.Repository, service *reconcile.Service) *MatchingHandler {
	return &MatchingHandler{
		Base:    NewBase(repo),
		service: service,
	}
}

// Suggestions handles GET /api/bank-transactions/{id}/suggestions.
func (h *MatchingHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	txID, err := ParseUUIDPathParam(r, "id")
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	suggestions, err := h.service.GetSuggestions(r.Context(), OwnerID(r), txID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewSuggestionListResponse(txID, suggestions))
}

// Match handles POST /api/bank-transactions/{id}/match.
func (h *MatchingHandler) Match(w http.ResponseWriter, r *http.Request) {
	txID, err := ParseUUIDPathParam(r, "id")
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	var req dto.MatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	target, err := matchTarget(req)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	tx, err := h.service.ApplyMatch(r.Context(), OwnerID(r), txID, target)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewTransactionResponse(tx))
}

// Accept handles POST /api/bank-transactions/{id}/accept.
func (h *MatchingHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.AcceptSuggestion)
}

// Reject handles POST /api/bank-transactions/{id}/reject.
func (h *MatchingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.RejectSuggestion)
}

// Exclude handles POST /api/bank-transactions/{id}/exclude.
func (h *MatchingHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Exclude)
}

// Reconcile handles POST /api/bank-transactions/{id}/reconcile.
func (h *MatchingHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reconcile)
}

// AutoMatch handles POST /api/bank-transactions/auto-match.
func (h *MatchingHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.AutoMatchRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	var accountID *uuid.UUID
	if req.BankAccountID != nil {
		parsed, err := uuid.Parse(*req.BankAccountID)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError("invalid bank_account_id"))
			return
		}
		accountID = &parsed
	}

	result, err := h.service.RunAutoMatch(r.Context(), OwnerID(r), accountID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewAutoMatchResponse(result))
}

// transition runs one of the body-less state transition endpoints.
func (h *MatchingHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, ownerID, txID uuid.UUID) (*storage.BankTransaction, error),
) {
	txID, err := ParseUUIDPathParam(r, "id")
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	tx, err := op(r.Context(), OwnerID(r), txID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewTransactionResponse(tx))
}

func matchTarget(req dto.MatchRequest) (reconcile.MatchTarget, error) {
	target := reconcile.MatchTarget{Confidence: 1.0}
	if req.Confidence != nil {
		target.Confidence = *req.Confidence
	}

	assign := []struct {
		raw  *string
		dest **uuid.UUID
	}{
		{req.CustomerID, &target.CustomerID},
		{req.VendorID, &target.VendorID},
		{req.InvoiceID, &target.InvoiceID},
		{req.BillID, &target.BillID},
		{req.CategoryID, &target.CategoryID},
	}
	for _, a := range assign {
		if a.raw == nil {
			continue
		}
		id, err := uuid.Parse(*a.raw)
		if err != nil {
			return reconcile.MatchTarget{}, feederr.Validation("invalid id %q", *a.raw)
		}
		*a.dest = &id
	}
	return target, nil
}
