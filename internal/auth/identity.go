package auth

import (
	"context"

	"go-wiki-engine/internal/middleware"
	"go-wiki-engine/internal/service"
)

// SessionIdentity reports the user the identity middleware put into the
// request context. Requests without a login act as the anonymous user.
type SessionIdentity struct{}

var _ service.IdentityProvider = SessionIdentity{}

// Actor implements service.IdentityProvider.
func (SessionIdentity) Actor(ctx context.Context) service.Actor {
	u := middleware.GetUserInfo(ctx)
	return service.Actor{ID: u.Subject, Name: u.Name}
}
