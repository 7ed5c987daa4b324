package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/openclaw/timeclock-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

const EventStaleSession = "stale_session"

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data}, nil
}

// Client is one connected gateway stream for an organization.
type Client struct {
	OrganizationID string
	Events         chan Event
	Done           chan struct{}
}

// Broker fans notifications published on Redis out to the gateway streams
// connected to this process. Each organization with at least one client has
// exactly one Redis subscription.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool    // organizationID -> set of clients
	subs    map[string]context.CancelFunc // organizationID -> redis subscription
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(orgID string) *Client {
	client := &Client{
		OrganizationID: orgID,
		Events:         make(chan Event, clientBufferSize),
		Done:           make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[orgID] == nil {
		b.clients[orgID] = make(map[*Client]bool)
		subCtx, subCancel := context.WithCancel(b.ctx)
		b.subs[orgID] = subCancel
		go b.subscribeToRedis(subCtx, orgID)
	}
	b.clients[orgID][client] = true
	clientCount := len(b.clients[orgID])
	b.mu.Unlock()

	log.Info().
		Str("organizationId", orgID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, ok := b.clients[client.OrganizationID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client.Done)

	if len(clients) == 0 {
		delete(b.clients, client.OrganizationID)
		if cancel, ok := b.subs[client.OrganizationID]; ok {
			cancel()
			delete(b.subs, client.OrganizationID)
		}
	}

	log.Info().
		Str("organizationId", client.OrganizationID).
		Int("clientCount", len(clients)).
		Msg("sse client unsubscribed")
}

// Publish sends an event to every process subscribed to the organization.
// It succeeds even when nobody is listening.
func (b *Broker) Publish(ctx context.Context, orgID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.redis.Publish(ctx, redisclient.NotificationChannel(orgID), data).Err()
}

func (b *Broker) subscribeToRedis(ctx context.Context, orgID string) {
	channel := redisclient.NotificationChannel(orgID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("organizationId", orgID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(orgID, event)
		}
	}
}

func (b *Broker) broadcast(orgID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[orgID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("organizationId", orgID).
				Str("eventType", event.Type).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.subs = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(orgID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[orgID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
