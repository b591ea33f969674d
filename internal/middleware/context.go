package middleware

import (
	"context"
	"net/http"

	"go-wiki-engine/internal/session"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// Anonymous is the subject of requests without a login.
const Anonymous = "anonymous"

// UserInfo represents the essential user information stored in the session and request context.
type UserInfo struct {
	Subject string
	Name    string
}

// IsAnonymous reports whether nobody is logged in.
func (u *UserInfo) IsAnonymous() bool { return u.Subject == Anonymous }

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{Subject: Anonymous, Name: "Anonymous"}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}

// Identity copies the logged-in user from the session into the request
// context. It must run inside the session manager's LoadAndSave.
func Identity(sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := sm.GetString(r.Context(), session.SubjectKey)
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}
			name := sm.GetString(r.Context(), session.NameKey)
			if name == "" {
				name = subject
			}
			ctx := SetUserInfo(r.Context(), &UserInfo{Subject: subject, Name: name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
