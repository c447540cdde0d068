package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/api/dto"
)

// OwnerHeader carries the tenant id on every API request. Authentication
// itself happens upstream; this middleware only makes the resolved tenant
// available to handlers.
const OwnerHeader = "X-Owner-ID"

type contextKey int

const ownerKey contextKey = iota

// RequireOwner returns middleware that rejects requests without a valid
// owner id header and stores the parsed id in the request context.
func RequireOwner() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(OwnerHeader)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, dto.UnauthorizedError("missing "+OwnerHeader+" header"))
				return
			}
			ownerID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, dto.UnauthorizedError("invalid "+OwnerHeader+" header"))
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerID returns the tenant id stored by RequireOwner.
func OwnerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ownerKey).(uuid.UUID)
	return id, ok
}

// WithOwnerID stores a tenant id directly on a context, for tests.
func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

func writeError(w http.ResponseWriter, status int, apiErr dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErr)
}
