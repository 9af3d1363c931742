package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig validates a bearer token's HMAC signature and required claims
// (spec.md §4.3 "jwt.go"). Only HS256/384/512 are supported — asymmetric
// algorithms would need a JWKS fetcher, which is out of scope here.
type JWTConfig struct {
	Secret         string
	Algorithm      string // "HS256" | "HS384" | "HS512"
	RequiredClaims map[string]string
}

type JWT struct {
	cfg    JWTConfig
	method jwt.SigningMethod
}

func NewJWT(cfg JWTConfig) *JWT {
	m := &JWT{cfg: cfg}
	switch cfg.Algorithm {
	case "HS384":
		m.method = jwt.SigningMethodHS384
	case "HS512":
		m.method = jwt.SigningMethodHS512
	default:
		m.method = jwt.SigningMethodHS256
	}
	return m
}

func (m *JWT) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil
	}
	raw := strings.TrimPrefix(authz, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(m.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}))
	if err != nil || !token.Valid {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil
	}
	for k, want := range m.cfg.RequiredClaims {
		got, _ := claims[k].(string)
		if got != want {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return nil
		}
	}
	return next(ctx, w, r)
}
