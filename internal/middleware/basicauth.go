package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthConfig is an in-memory htpasswd-style table: username -> bcrypt
// hash (spec.md §4.3 "basicauth.go").
type BasicAuthConfig struct {
	Users map[string]string
	Realm string
}

type BasicAuth struct{ cfg BasicAuthConfig }

func NewBasicAuth(cfg BasicAuthConfig) *BasicAuth {
	if cfg.Realm == "" {
		cfg.Realm = "restricted"
	}
	return &BasicAuth{cfg: cfg}
}

func (m *BasicAuth) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	user, pass, ok := r.BasicAuth()
	if ok {
		if hash, known := m.cfg.Users[user]; known {
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil {
				r.Header.Set("X-Forwarded-User", user)
				return next(ctx, w, r)
			}
		}
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="`+m.cfg.Realm+`"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	return nil
}

// constantTimeEqual is kept for callers that compare raw secrets (e.g. a
// static API-key variant of this middleware) rather than bcrypt hashes.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
