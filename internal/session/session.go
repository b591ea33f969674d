// Package session keeps login state in the page database through scs.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go-wiki-engine/internal/config"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys shared by the login flow and the identity middleware.
const (
	SubjectKey = "user_subject"
	NameKey    = "user_name"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New builds a session manager storing sessions in db. The driver selects
// the scs store matching the sessions table created by the migrations.
func New(db *sql.DB, dbCfg config.DBConfig, cfg config.SessionConfig, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch dbCfg.Driver {
	case "mysql":
		sm.Store = mysqlstore.New(db)
	default:
		sm.Store = sqlite3store.New(db)
	}
	lifetime := time.Duration(cfg.Lifetime) * time.Hour
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "wiki_session"
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}
