package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
)

// AccessValidator is satisfied by *goMiniAuth.Engine.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*goMiniAuth.Claims, error)
}

// Guard rejects requests without a valid bearer access token and stores the
// validated claims in the request context (see goMiniAuth.ClaimsFromContext).
func Guard(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goMiniAuth.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the credential of an "Authorization: Bearer <value>"
// header. Login and refresh carry the raw initData this way.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

// ClientIP records the peer address in the request context for audit events.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(goMiniAuth.WithClientIP(r.Context(), ip)))
	})
}
