package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/wolfeidau/statuspage/internal/models"
)

type contextKey struct{}

// WithUser returns a context carrying the authenticated local user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user placed in the context by the Gate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*models.User)
	return user, ok && user != nil
}

// OrganizationFromContext returns the organization scope of the request.
func OrganizationFromContext(ctx context.Context) (uuid.UUID, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return user.OrganizationID, true
}
