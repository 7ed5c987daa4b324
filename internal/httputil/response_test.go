package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode apperrors.ErrorCode
	}{
		{"already open maps to conflict", apperrors.AlreadyOpen(), http.StatusConflict, apperrors.ErrCodeAlreadyOpen},
		{"no open session maps to conflict", apperrors.NoOpenSession(), http.StatusConflict, apperrors.ErrCodeNoOpenSession},
		{"not found", apperrors.NotFound("Work session"), http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"forbidden", apperrors.Forbidden("nope"), http.StatusForbidden, apperrors.ErrCodeForbidden},
		{"invalid range is bad request", apperrors.InvalidRange("YYYY-MM-DD"), http.StatusBadRequest, apperrors.ErrCodeInvalidRange},
		{"exhaustion maps to conflict", apperrors.AllocationExhausted("240301"), http.StatusConflict, apperrors.ErrCodeAllocationExhausted},
		{"bad signature is unauthorized", apperrors.InvalidSignature(), http.StatusUnauthorized, apperrors.ErrCodeInvalidSignature},
		{"plain error is internal", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), string(tc.wantCode))
		})
	}
}

func TestWriteErrorWithStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorWithStatus(rec, http.StatusTeapot, apperrors.Internal("kettle"))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, rec.Body.String(), "kettle")
}
