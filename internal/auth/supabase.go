package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKeyUserID struct{}

// Verifier validates Supabase-issued access tokens. It accepts either a
// static RSA public key (PEM or inline JWKS JSON) or a JWKS URL with a
// per-kid cache.
type Verifier struct {
	PublicKeyPEMOrJWKS string
	JWKSURL            string
	Audience           string
	Issuer             string

	parsedKey *rsa.PublicKey
	cache     jwksCache
}

func (v *Verifier) lazyParse() error {
	if v.parsedKey != nil {
		return nil
	}
	str := strings.TrimSpace(v.PublicKeyPEMOrJWKS)
	if str == "" {
		return nil
	}
	if strings.HasPrefix(str, "{") {
		var set jwks
		if err := json.Unmarshal([]byte(str), &set); err != nil {
			return err
		}
		if len(set.Keys) == 0 {
			return errors.New("jwks empty")
		}
		k, err := decodeJWKToRSA(set.Keys[0])
		if err != nil {
			return err
		}
		v.parsedKey = k
		return nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(str))
	if err != nil {
		return err
	}
	v.parsedKey = key
	return nil
}

func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected method: %v", token.Header["alg"])
		}
		if err := v.lazyParse(); err == nil && v.parsedKey != nil {
			return v.parsedKey, nil
		}
		if v.JWKSURL == "" {
			return nil, errors.New("no verification key")
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid")
		}
		if k, ok := v.cache.get(kid); ok {
			return k, nil
		}
		set, err := fetchJWKS(ctx, v.JWKSURL)
		if err != nil {
			return nil, err
		}
		for _, j := range set.Keys {
			if j.Kid == kid {
				k, err := decodeJWKToRSA(j)
				if err != nil {
					return nil, err
				}
				v.cache.set(kid, k)
				return k, nil
			}
		}
		return nil, errors.New("no verification key")
	}
}

// Middleware rejects requests without a valid session token and stashes the
// subject id in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			unauthorized(w)
			return
		}

		parsed, err := jwt.Parse(tok, v.keyFunc(r.Context()),
			jwt.WithAudience(v.Audience), jwt.WithIssuer(v.Issuer))
		if err != nil || !parsed.Valid {
			unauthorized(w)
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(w)
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUserID{}, sub)))
	})
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	// Cookie fallback for browser requests.
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}

// WithUserID stamps a user id onto the context the way Middleware does.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, id)
}

// UserID returns the authenticated user's id, or "" outside the middleware.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID{}).(string); ok {
		return v
	}
	return ""
}
