package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/model"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

func closedSession(userKey, name, publicID string, start, end time.Time) model.WorkSession {
	return model.WorkSession{
		OrganizationID:  "G1",
		UserKey:         userKey,
		UserDisplayName: name,
		PublicID:        publicID,
		StartTime:       start,
		EndTime:         &end,
	}
}

// seed inserts a session through the repository and closes it when end is
// non-zero.
func seed(t *testing.T, repo *repository.MemoryWorkSessionRepository, userKey, name, publicID string, start, end time.Time) {
	t.Helper()
	ctx := context.Background()

	s, err := repo.Create(ctx, model.CreateWorkSessionParams{
		OrganizationID:  "G1",
		UserKey:         userKey,
		UserDisplayName: name,
		PublicID:        publicID,
		StartTime:       start,
	})
	require.NoError(t, err)

	if !end.IsZero() {
		_, err = repo.Close(ctx, s.ID, end)
		require.NoError(t, err)
	}
}

func TestSumByUser(t *testing.T) {
	t.Run("open sessions are excluded", func(t *testing.T) {
		open := model.WorkSession{UserKey: "U1", UserDisplayName: "alice", StartTime: at(2024, 3, 1, 12, 0)}
		sessions := []model.WorkSession{
			open,
			closedSession("U1", "alice", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 30)),
		}

		totals := SumByUser(sessions)
		require.Len(t, totals, 1)
		assert.Equal(t, 90.0, totals[0].Minutes())
		assert.Equal(t, 1.5, totals[0].Hours())
		assert.Equal(t, 1, totals[0].Sessions)
	})

	t.Run("keyed by user, named by latest session", func(t *testing.T) {
		sessions := []model.WorkSession{
			closedSession("U1", "alice", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0)),
			closedSession("U1", "alice2", "240302-001", at(2024, 3, 2, 9, 0), at(2024, 3, 2, 10, 0)),
			closedSession("U2", "alice", "240301-002", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 9, 30)),
		}

		totals := SumByUser(sessions)
		require.Len(t, totals, 2)
		assert.Equal(t, "alice", totals[0].DisplayName)
		assert.Equal(t, "U2", totals[0].UserKey)
		assert.Equal(t, 30.0, totals[0].Minutes())
		assert.Equal(t, "alice2", totals[1].DisplayName)
		assert.Equal(t, 120.0, totals[1].Minutes())
	})

	t.Run("inconsistent sessions are counted as-is", func(t *testing.T) {
		sessions := []model.WorkSession{
			closedSession("U1", "alice", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 12, 0)),
			closedSession("U1", "alice", "240301-002", at(2024, 3, 1, 18, 0), at(2024, 3, 1, 17, 0)),
		}

		totals := SumByUser(sessions)
		require.Len(t, totals, 1)
		assert.Equal(t, 120.0, totals[0].Minutes())
		assert.Equal(t, 1, totals[0].Inconsistent)
	})
}

func TestLabelTotals(t *testing.T) {
	labeled := LabelTotals([]UserTotal{
		{UserKey: "U1", DisplayName: "alice", Duration: time.Hour},
		{UserKey: "U2", DisplayName: "alice", Duration: 2 * time.Hour},
		{UserKey: "U3", DisplayName: "bob", Duration: 3 * time.Hour},
	})

	require.Len(t, labeled, 3)
	assert.Equal(t, "U1", labeled["alice (U1)"].UserKey)
	assert.Equal(t, "U2", labeled["alice (U2)"].UserKey)
	assert.Equal(t, 180.0, labeled["bob"].Minutes())
}

func TestAggregateService(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWorkSessionRepository()
	agg := NewAggregateService(repo, clock.NewFake(at(2024, 4, 2, 9, 0)))

	seed(t, repo, "U1", "alice", "240331-001", at(2024, 3, 31, 23, 0), at(2024, 3, 31, 23, 59))
	seed(t, repo, "U1", "alice", "240331-002", at(2024, 3, 31, 23, 59), at(2024, 4, 1, 0, 1))
	seed(t, repo, "U2", "bob", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 30))
	seed(t, repo, "U2", "bob", "240401-001", at(2024, 4, 1, 9, 0), time.Time{})

	t.Run("whole-day inclusive range", func(t *testing.T) {
		r, err := ParseDateRange("2024-03-01", "2024-03-31", tokyo)
		require.NoError(t, err)

		minutes, err := agg.TotalMinutes(ctx, "G1", "", r)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"alice": 59, "bob": 90}, minutes)
	})

	t.Run("no range covers all closed sessions", func(t *testing.T) {
		minutes, err := agg.TotalMinutes(ctx, "G1", "", model.DateRange{})
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"alice": 61, "bob": 90}, minutes)
	})

	t.Run("single user", func(t *testing.T) {
		total, err := agg.UserTotal(ctx, "G1", "U2")
		require.NoError(t, err)
		assert.Equal(t, "bob", total.DisplayName)
		assert.Equal(t, 90.0, total.Minutes())
	})

	t.Run("user without closed sessions", func(t *testing.T) {
		total, err := agg.UserTotal(ctx, "G1", "U9")
		require.NoError(t, err)
		assert.Equal(t, "U9", total.UserKey)
		assert.Zero(t, total.Duration)
	})

	t.Run("other organizations are not visible", func(t *testing.T) {
		minutes, err := agg.TotalMinutes(ctx, "G2", "", model.DateRange{})
		require.NoError(t, err)
		assert.Empty(t, minutes)
	})
}

func TestParseDateRange(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		r, err := ParseDateRange("2024-03-01", "2024-03-31", tokyo)
		require.NoError(t, err)
		require.NotNil(t, r.From)
		require.NotNil(t, r.To)
		assert.True(t, r.From.Equal(at(2024, 3, 1, 0, 0)))
		assert.True(t, r.To.Equal(at(2024, 4, 1, 0, 0)))
		assert.True(t, r.Contains(at(2024, 3, 31, 23, 59)))
		assert.False(t, r.Contains(at(2024, 4, 1, 0, 1)))
	})

	t.Run("partial bounds stay open", func(t *testing.T) {
		r, err := ParseDateRange("", "2024-03-31", tokyo)
		require.NoError(t, err)
		assert.Nil(t, r.From)
		assert.NotNil(t, r.To)

		r, err = ParseDateRange(" ", "", tokyo)
		require.NoError(t, err)
		assert.True(t, r.IsZero())
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := ParseDateRange("2024-3-1", "", tokyo)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRange))
		assert.Contains(t, err.Error(), "YYYY-MM-DD")
	})

	t.Run("exports require both bounds", func(t *testing.T) {
		_, err := RequireDateRange("2024-03-01", "", tokyo)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))

		_, err = RequireDateRange("2024-03-01", "2024-13-01", tokyo)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRange))
	})
}
