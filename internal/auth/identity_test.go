//go:build unit

package auth

import (
	"context"
	"testing"

	"go-wiki-engine/internal/middleware"
)

func TestSessionIdentity_Actor(t *testing.T) {
	anon := SessionIdentity{}.Actor(context.Background())
	if anon.ID != middleware.Anonymous {
		t.Errorf("expected anonymous actor, got %q", anon.ID)
	}

	ctx := middleware.SetUserInfo(context.Background(), &middleware.UserInfo{Subject: "sub-1", Name: "Ada"})
	actor := SessionIdentity{}.Actor(ctx)
	if actor.ID != "sub-1" || actor.Name != "Ada" {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestClaims_DisplayName(t *testing.T) {
	tests := []struct {
		claims Claims
		want   string
	}{
		{Claims{Subject: "s", Name: "Ada", Email: "a@x"}, "Ada"},
		{Claims{Subject: "s", PreferredUsername: "ada", Email: "a@x"}, "ada"},
		{Claims{Subject: "s", Email: "a@x"}, "a@x"},
		{Claims{Subject: "s"}, "s"},
	}
	for _, tt := range tests {
		if got := tt.claims.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
