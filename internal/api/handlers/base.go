package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/api/dto"
	"github.com/hazlijohar95/bankfeed/internal/api/middleware"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps a service-layer error onto the HTTP status and
// error-code taxonomy.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case feederr.IsValidation(err):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case feederr.IsNotFound(err):
		b.WriteError(w, http.StatusNotFound, dto.NewAPIError(dto.ErrCodeNotFound, err.Error()))
	case feederr.IsConflict(err):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
	default:
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// decodeJSON decodes a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}

// OwnerID returns the tenant id the owner middleware stored on the request.
func OwnerID(r *http.Request) uuid.UUID {
	ownerID, _ := middleware.OwnerID(r.Context())
	return ownerID
}

// ParseUUIDPathParam parses a UUID path parameter.
func ParseUUIDPathParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, feederr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses an optional boolean query parameter; nil when absent.
func ParseBoolParam(r *http.Request, name string) *bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	parsed := val == "true" || val == "1"
	return &parsed
}
