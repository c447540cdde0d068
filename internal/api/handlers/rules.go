package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/api/dto"
	"github.com/hazlijohar95/bankfeed/internal/application/reconcile"
	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
)

// RulesHandler handles matching-rule HTTP requests.
type RulesHandler struct {
	*Base
	service *reconcile.Service
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(repo storage.Repository, service *reconcile.Service) *RulesHandler {
	return &RulesHandler{
		Base:    NewBase(repo),
		service: service,
	}
}

// List handles GET /api/matching-rules.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	listed, err := h.service.ListRules(r.Context(), OwnerID(r))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.RuleListResponse{Rules: make([]dto.RuleResponse, 0, len(listed))}
	for i := range listed {
		response.Rules = append(response.Rules, dto.NewRuleResponse(&listed[i]))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Create handles POST /api/matching-rules.
func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	var conditions rules.Conditions
	if len(req.Conditions) > 0 {
		parsed, err := rules.UnmarshalConditions(req.Conditions)
		if err != nil {
			h.WriteServiceError(w, err)
			return
		}
		conditions = parsed
	}

	targetID, err := uuid.Parse(req.Action.TargetID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("invalid action target_id"))
		return
	}
	action := rules.Action{
		Type:     rules.ActionType(req.Action.Type),
		TargetID: targetID,
	}

	rule, err := h.service.CreateRule(r.Context(), OwnerID(r), req.Name, req.Priority, conditions, action)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, dto.NewRuleResponse(rule))
}

// Delete handles DELETE /api/matching-rules/{id}.
func (h *RulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ruleID, err := ParseUUIDPathParam(r, "id")
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	if err := h.service.DeleteRule(r.Context(), OwnerID(r), ruleID); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
