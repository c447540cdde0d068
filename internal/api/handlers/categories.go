package handlers

import (
	"net/http"

	"github.com/hazlijohar95/bankfeed/internal/api/dto"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
)

// CategoriesHandler serves the category reference data used by
// categorize rules.
type CategoriesHandler struct {
	*Base
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo storage.Repository) *CategoriesHandler {
	return &CategoriesHandler{Base: NewBase(repo)}
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(OwnerID(r))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.CategoryListResponse{
		Categories: make([]dto.CategoryResponse, 0, len(categories)),
	}
	for _, c := range categories {
		response.Categories = append(response.Categories, dto.CategoryResponse{
			ID:    c.ID.String(),
			Name:  c.Name,
			Type:  c.Type,
			Color: c.Color,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
