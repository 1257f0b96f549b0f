package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// OwnerHeader carries the owner of every ledger and analysis request.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// WithOwnerID returns a copy of ctx carrying ownerID.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerID returns the owner stored by RequireOwner, or "".
func OwnerID(ctx context.Context) string {
	ownerID, _ := ctx.Value(ownerKey{}).(string)
	return ownerID
}

// RequireOwner rejects requests without a UUID in the X-Owner-ID header with
// 400 Bad Request and stores the normalized owner ID in the context.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.ToLower(strings.TrimSpace(r.Header.Get(OwnerHeader)))

		if err := validation.ValidateOwnerID(ownerID); err != nil {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidOwner.Error(), OwnerHeader)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
	})
}
