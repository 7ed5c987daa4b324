package handler

import (
	"net/http"
	"time"

	"github.com/openclaw/timeclock-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

type streamCounter interface {
	TotalClients() int
}

// HealthHandler reports liveness. It does not touch Postgres or Redis so a
// slow dependency does not get the instance restarted.
type HealthHandler struct {
	streams streamCounter
}

func NewHealthHandler(streams streamCounter) *HealthHandler {
	return &HealthHandler{streams: streams}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UnixMilli(),
		"gatewayStreams": h.streams.TotalClients(),
	})
}
