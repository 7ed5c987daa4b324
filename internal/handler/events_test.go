package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/timeclock-server-go/internal/sse"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	client       *sse.Client
	subscribed   chan struct{}
	unsubscribed bool
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{subscribed: make(chan struct{})}
}

func (f *fakeSubscriber) Subscribe(orgID string) *sse.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client = &sse.Client{
		OrganizationID: orgID,
		Events:         make(chan sse.Event),
		Done:           make(chan struct{}),
	}
	close(f.subscribed)
	return f.client
}

func (f *fakeSubscriber) Unsubscribe(client *sse.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
}

func (f *fakeSubscriber) ClientCount(orgID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil && f.client.OrganizationID == orgID && !f.unsubscribed {
		return 1
	}
	return 0
}

func (f *fakeSubscriber) TotalClients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil && !f.unsubscribed {
		return 1
	}
	return 0
}

func TestEventsHandler_ServeHTTP(t *testing.T) {
	t.Run("requires an organization", func(t *testing.T) {
		handler := NewEventsHandler(newFakeSubscriber())

		req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("streams events until the client disconnects", func(t *testing.T) {
		sub := newFakeSubscriber()
		handler := NewEventsHandler(sub)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/v1/events?organization=G1", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		done := make(chan struct{})
		go func() {
			defer close(done)
			handler.ServeHTTP(rec, req)
		}()

		select {
		case <-sub.subscribed:
		case <-time.After(time.Second):
			t.Fatal("handler never subscribed")
		}

		event, err := sse.NewEvent(sse.EventStaleSession, map[string]string{"publicId": "240301-001"})
		require.NoError(t, err)
		sub.client.Events <- event
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not return after cancellation")
		}

		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Contains(t, body, "event: connected\n")
		assert.Contains(t, body, `"organizationId":"G1"`)
		assert.Contains(t, body, "event: stale_session\ndata: {\"publicId\":\"240301-001\"}\n\n")
		assert.Equal(t, "G1", sub.client.OrganizationID)
		assert.True(t, sub.unsubscribed)
	})

	t.Run("returns when the broker closes the client", func(t *testing.T) {
		sub := newFakeSubscriber()
		handler := NewEventsHandler(sub)

		req := httptest.NewRequest(http.MethodGet, "/v1/events?organization=G1", nil)
		rec := httptest.NewRecorder()

		done := make(chan struct{})
		go func() {
			defer close(done)
			handler.ServeHTTP(rec, req)
		}()

		<-sub.subscribed
		close(sub.client.Done)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not return after broker close")
		}
		assert.True(t, sub.unsubscribed)
	})
}

func TestHealthHandler(t *testing.T) {
	sub := newFakeSubscriber()
	health := NewHealthHandler(sub)

	rec := httptest.NewRecorder()
	health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"gatewayStreams":0`)

	sub.Subscribe("G1")
	rec = httptest.NewRecorder()
	health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, rec.Body.String(), `"gatewayStreams":1`)
}
