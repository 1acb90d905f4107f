package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oichat/backend/internal/models"
)

type contextKey string

const ctxUserKey contextKey = "user"

// TokenValidator resolves a bearer token to a user ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// UserLookup loads the authenticated user. Returns nil when the user no
// longer exists.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionAuth authenticates requests by validating the Bearer token and
// loading the user into request context. Requests without a valid session
// get a 401 with the standard error shape.
func SessionAuth(tokens TokenValidator, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				unauthorized(w)
				return
			}
			userID, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				unauthorized(w)
				return
			}
			user, err := users.GetByID(r.Context(), userID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// UserFromCtx returns the authenticated user or nil.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"error":"User not authenticated"}`, http.StatusUnauthorized)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
