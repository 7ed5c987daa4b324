package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/httputil"
	"github.com/openclaw/timeclock-server-go/internal/sse"
	"github.com/openclaw/timeclock-server-go/internal/util"
)

type eventSubscriber interface {
	Subscribe(orgID string) *sse.Client
	Unsubscribe(client *sse.Client)
	ClientCount(orgID string) int
}

// EventsHandler streams an organization's notifications to the platform
// gateway, which turns stale_session events into direct messages.
type EventsHandler struct {
	broker eventSubscriber
}

func NewEventsHandler(broker eventSubscriber) *EventsHandler {
	return &EventsHandler{broker: broker}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organization")
	if !util.IsValidIdentifier(orgID) {
		httputil.WriteError(w, apperrors.MissingRequired("organization"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(orgID)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("organizationId", orgID).
		Int("streams", h.broker.ClientCount(orgID)).
		Msg("sse connection established")

	ctx := r.Context()

	if err := h.sendEvent(w, flusher, "connected", map[string]any{
		"organizationId": orgID,
		"timestamp":      time.Now().UnixMilli(),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("organizationId", orgID).
				Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().
				Str("organizationId", orgID).
				Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Str("organizationId", orgID).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("organizationId", orgID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
