package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/config"
	"github.com/openclaw/timeclock-server-go/internal/model"
	"github.com/openclaw/timeclock-server-go/internal/notify"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.StaleSessionNotice
	failFor map[string]bool
}

func (n *recordingNotifier) NotifyStaleSession(ctx context.Context, notice notify.StaleSessionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failFor[notice.UserKey] {
		return errors.New("user unreachable")
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) publicIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]string, 0, len(n.notices))
	for _, notice := range n.notices {
		ids = append(ids, notice.PublicID)
	}
	sort.Strings(ids)
	return ids
}

type failingOrgRepo struct {
	*repository.MemoryWorkSessionRepository
	failOrg string
}

func (r *failingOrgRepo) FindOpenStartedBefore(ctx context.Context, orgID string, cutoff time.Time) ([]model.WorkSession, error) {
	if orgID == r.failOrg {
		return nil, errors.New("partition unavailable")
	}
	return r.MemoryWorkSessionRepository.FindOpenStartedBefore(ctx, orgID, cutoff)
}

func openSession(t *testing.T, repo repository.WorkSessionRepository, orgID, userKey, publicID string, start time.Time) {
	t.Helper()
	_, err := repo.Create(context.Background(), model.CreateWorkSessionParams{
		OrganizationID:  orgID,
		UserKey:         userKey,
		UserDisplayName: userKey + "-name",
		PublicID:        publicID,
		StartTime:       start,
	})
	require.NoError(t, err)
}

func TestStaleSessionSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("flags sessions open for at least the threshold", func(t *testing.T) {
		repo := repository.NewMemoryWorkSessionRepository()
		openSession(t, repo, "G1", "U9", "240301-001", now.Add(-9*time.Hour))
		openSession(t, repo, "G1", "U10", "240301-002", now.Add(-10*time.Hour))
		openSession(t, repo, "G2", "U11", "240301-001", now.Add(-11*time.Hour))

		closed, err := repo.Create(ctx, model.CreateWorkSessionParams{
			OrganizationID: "G1", UserKey: "U12", PublicID: "240301-003", StartTime: now.Add(-20 * time.Hour),
		})
		require.NoError(t, err)
		_, err = repo.Close(ctx, closed.ID, now.Add(-12*time.Hour))
		require.NoError(t, err)

		notifier := &recordingNotifier{}
		sweeper := NewStaleSessionSweeper(repo, notifier, clock.NewFake(now), time.Minute, config.StaleSessionThreshold)

		result, err := sweeper.Sweep(ctx)
		require.NoError(t, err)

		assert.Equal(t, SweepResult{Organizations: 2, Flagged: 2, Notified: 2}, result)
		assert.Equal(t, []string{"240301-001", "240301-002"}, notifier.publicIDs())

		for _, n := range notifier.notices {
			if n.UserKey == "U11" {
				assert.Equal(t, "G2", n.OrganizationID)
				assert.Equal(t, int64(660), n.OpenForMinutes)
			}
		}

		open, err := repo.FindOpenByUser(ctx, "G1", "U10")
		require.NoError(t, err)
		assert.True(t, open.IsOpen(), "sweep must not close sessions")
	})

	t.Run("one failed delivery does not stop the others", func(t *testing.T) {
		repo := repository.NewMemoryWorkSessionRepository()
		openSession(t, repo, "G1", "U1", "240301-001", now.Add(-12*time.Hour))
		openSession(t, repo, "G1", "U2", "240301-002", now.Add(-12*time.Hour))
		openSession(t, repo, "G1", "U3", "240301-003", now.Add(-12*time.Hour))

		notifier := &recordingNotifier{failFor: map[string]bool{"U2": true}}
		sweeper := NewStaleSessionSweeper(repo, notifier, clock.NewFake(now), time.Minute, config.StaleSessionThreshold)

		result, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Flagged)
		assert.Equal(t, 2, result.Notified)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, []string{"240301-001", "240301-003"}, notifier.publicIDs())
	})

	t.Run("one failed organization does not stop the others", func(t *testing.T) {
		repo := &failingOrgRepo{MemoryWorkSessionRepository: repository.NewMemoryWorkSessionRepository(), failOrg: "G1"}
		openSession(t, repo, "G1", "U1", "240301-001", now.Add(-12*time.Hour))
		openSession(t, repo, "G2", "U2", "240301-001", now.Add(-12*time.Hour))

		notifier := &recordingNotifier{}
		sweeper := NewStaleSessionSweeper(repo, notifier, clock.NewFake(now), time.Minute, config.StaleSessionThreshold)

		result, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, SweepResult{Organizations: 2, Flagged: 1, Notified: 1, Failed: 1}, result)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo := repository.NewMemoryWorkSessionRepository()
		openSession(t, repo, "G1", "U1", "240301-001", now.Add(-12*time.Hour))

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		notifier := &recordingNotifier{}
		sweeper := NewStaleSessionSweeper(repo, notifier, clock.NewFake(now), time.Minute, config.StaleSessionThreshold)

		_, err := sweeper.Sweep(cctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, notifier.publicIDs())
	})
}

func TestStaleSessionSweeper_StartStop(t *testing.T) {
	repo := repository.NewMemoryWorkSessionRepository()
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	openSession(t, repo, "G1", "U1", "240301-001", now.Add(-12*time.Hour))

	notifier := &recordingNotifier{}
	sweeper := NewStaleSessionSweeper(repo, notifier, clock.NewFake(now), 10*time.Millisecond, config.StaleSessionThreshold)

	sweeper.Start()
	// Every pass notifies again; reminders are not de-duplicated.
	require.Eventually(t, func() bool {
		return len(notifier.publicIDs()) >= 2
	}, time.Second, 5*time.Millisecond)
	sweeper.Stop()

	assert.Equal(t, "240301-001", notifier.publicIDs()[0])
}
