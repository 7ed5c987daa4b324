package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/audit"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/httputil"
	"github.com/openclaw/timeclock-server-go/internal/util"
)

// TokenMiddleware guards a route with a single bearer token. The gateway
// token is compared directly; the admin export token is stored as a bcrypt
// hash.
type TokenMiddleware struct {
	name  string
	check func(token string) bool
}

func NewGatewayTokenMiddleware(token string) *TokenMiddleware {
	return &TokenMiddleware{
		name: "gateway",
		check: func(candidate string) bool {
			return token != "" && util.ConstantTimeEqual(candidate, token)
		},
	}
}

func NewAdminTokenMiddleware(tokenHash string) *TokenMiddleware {
	return &TokenMiddleware{
		name: "admin",
		check: func(candidate string) bool {
			return tokenHash != "" && util.CheckPasswordHash(candidate, tokenHash)
		},
	}
}

func (m *TokenMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		if !m.check(token) {
			log.Warn().Str("realm", m.name).Msg("auth middleware: invalid token attempt")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"realm": m.name},
			})
			httputil.WriteError(w, apperrors.InvalidToken("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
