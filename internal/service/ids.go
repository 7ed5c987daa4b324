package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
)

// maxDailySequence is the last sequence number that fits the 3-digit
// suffix of a public id.
const maxDailySequence = 999

type publicIDCounter interface {
	CountByPublicIDPrefix(ctx context.Context, orgID, prefix string) (int, error)
}

// IDAllocator hands out YYMMDD-NNN public ids. The count-then-insert
// sequence is not atomic; callers rely on the store's unique index and
// retry on collision.
type IDAllocator struct {
	counter publicIDCounter
	loc     *time.Location
}

func NewIDAllocator(counter publicIDCounter, loc *time.Location) *IDAllocator {
	return &IDAllocator{counter: counter, loc: loc}
}

func (a *IDAllocator) Allocate(ctx context.Context, orgID string, date time.Time) (string, error) {
	prefix := clock.PublicIDPrefix(date, a.loc)

	count, err := a.counter.CountByPublicIDPrefix(ctx, orgID, prefix)
	if err != nil {
		return "", fmt.Errorf("count public ids: %w", err)
	}
	if count >= maxDailySequence {
		return "", apperrors.AllocationExhausted(prefix)
	}

	return FormatPublicID(prefix, count+1), nil
}

func FormatPublicID(prefix string, seq int) string {
	return fmt.Sprintf("%s-%03d", prefix, seq)
}
