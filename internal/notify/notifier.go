// Package notify delivers direct notifications about work sessions to the
// chat platform gateway.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/sse"
)

// StaleSessionNotice asks the gateway to remind a user that their session
// has been open for too long.
type StaleSessionNotice struct {
	OrganizationID string    `json:"organizationId"`
	UserKey        string    `json:"userKey"`
	DisplayName    string    `json:"displayName"`
	PublicID       string    `json:"publicId"`
	StartTime      time.Time `json:"startTime"`
	OpenFor        string    `json:"openFor"`
	OpenForMinutes int64     `json:"openForMinutes"`
	Message        string    `json:"message"`
}

func NewStaleSessionNotice(orgID, userKey, displayName, publicID string, start time.Time, openFor time.Duration, loc *time.Location) StaleSessionNotice {
	openFor = openFor.Truncate(time.Minute)
	return StaleSessionNotice{
		OrganizationID: orgID,
		UserKey:        userKey,
		DisplayName:    displayName,
		PublicID:       publicID,
		StartTime:      start,
		OpenFor:        openFor.String(),
		OpenForMinutes: int64(openFor / time.Minute),
		Message: fmt.Sprintf(
			"Your work session %s started at %s has been open for %s. Use /end if you forgot to clock out.",
			publicID, clock.FormatDateTime(start, loc), openFor,
		),
	}
}

// Notifier is the best-effort delivery sink. Implementations return an
// error when the notice could not be handed off; callers decide whether
// that matters.
type Notifier interface {
	NotifyStaleSession(ctx context.Context, notice StaleSessionNotice) error
}

type publisher interface {
	Publish(ctx context.Context, orgID string, event sse.Event) error
}

// BrokerNotifier publishes notices on the organization's event stream, where
// the gateway picks them up and sends the direct message.
type BrokerNotifier struct {
	publisher publisher
}

func NewBrokerNotifier(p publisher) *BrokerNotifier {
	return &BrokerNotifier{publisher: p}
}

func (n *BrokerNotifier) NotifyStaleSession(ctx context.Context, notice StaleSessionNotice) error {
	event, err := sse.NewEvent(sse.EventStaleSession, notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	if err := n.publisher.Publish(ctx, notice.OrganizationID, event); err != nil {
		return apperrors.External("redis", err)
	}
	return nil
}
