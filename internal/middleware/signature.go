package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/audit"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/httputil"
	"github.com/openclaw/timeclock-server-go/internal/util"
)

const SignatureHeader = "X-Timeclock-Signature"

// CommandSignatureMiddleware verifies that a command body was signed by the
// platform gateway with the shared secret.
type CommandSignatureMiddleware struct {
	secret string
}

func NewCommandSignatureMiddleware(secret string) *CommandSignatureMiddleware {
	return &CommandSignatureMiddleware{secret: secret}
}

func (m *CommandSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			log.Warn().Msg("command signature verification bypassed: COMMAND_SIGNATURE_SECRET is not configured")
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(SignatureHeader)
		if signature == "" {
			log.Warn().Msg("signature middleware: missing signature header")
			httputil.WriteError(w, apperrors.InvalidSignature())
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("signature middleware: failed to read body")
			httputil.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
				apperrors.ValidationError("Failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := util.HmacSHA256(m.secret, body)
		if !util.ConstantTimeEqual(computed, signature) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventSignatureFailure})
			httputil.WriteError(w, apperrors.InvalidSignature())
			return
		}

		next.ServeHTTP(w, r)
	})
}
