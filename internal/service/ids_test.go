package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
)

type fixedCounter struct {
	count      int
	err        error
	lastPrefix string
}

func (c *fixedCounter) CountByPublicIDPrefix(ctx context.Context, orgID, prefix string) (int, error) {
	c.lastPrefix = prefix
	return c.count, c.err
}

func TestIDAllocator_Allocate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		count int
		want  string
	}{
		{name: "first of the day", count: 0, want: "240301-001"},
		{name: "zero padded", count: 41, want: "240301-042"},
		{name: "last slot", count: 998, want: "240301-999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &fixedCounter{count: tt.count}
			id, err := NewIDAllocator(counter, tokyo).Allocate(ctx, "G1", at(2024, 3, 1, 9, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, "240301", counter.lastPrefix)
		})
	}

	t.Run("exhausted after 999", func(t *testing.T) {
		_, err := NewIDAllocator(&fixedCounter{count: 999}, tokyo).Allocate(ctx, "G1", at(2024, 3, 1, 9, 0))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAllocationExhausted))
	})

	t.Run("prefix uses the civil date", func(t *testing.T) {
		counter := &fixedCounter{}
		// 2024-03-01 16:00 UTC is already March 2 in Tokyo.
		_, err := NewIDAllocator(counter, tokyo).Allocate(ctx, "G1", at(2024, 3, 2, 1, 0).UTC())
		require.NoError(t, err)
		assert.Equal(t, "240302", counter.lastPrefix)
	})

	t.Run("store error", func(t *testing.T) {
		_, err := NewIDAllocator(&fixedCounter{err: errors.New("boom")}, tokyo).Allocate(ctx, "G1", at(2024, 3, 1, 9, 0))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}
