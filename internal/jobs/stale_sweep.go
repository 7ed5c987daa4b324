package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/config"
	"github.com/openclaw/timeclock-server-go/internal/notify"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

type SweepResult struct {
	Organizations int
	Flagged       int
	Notified      int
	Failed        int
}

// StaleSessionSweeper periodically reminds users whose session has been open
// for at least the threshold. It never modifies sessions.
type StaleSessionSweeper struct {
	sessionRepo repository.WorkSessionRepository
	notifier    notify.Notifier
	clock       clock.Clock
	interval    time.Duration
	threshold   time.Duration
	concurrency int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStaleSessionSweeper(
	sessionRepo repository.WorkSessionRepository,
	notifier notify.Notifier,
	clk clock.Clock,
	interval time.Duration,
	threshold time.Duration,
) *StaleSessionSweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &StaleSessionSweeper{
		sessionRepo: sessionRepo,
		notifier:    notifier,
		clock:       clk,
		interval:    interval,
		threshold:   threshold,
		concurrency: config.NotifyConcurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (j *StaleSessionSweeper) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("threshold", j.threshold).
		Msg("stale session sweeper started")
}

// Stop cancels an in-flight sweep and waits for it to return.
func (j *StaleSessionSweeper) Stop() {
	j.cancel()
	j.wg.Wait()
	log.Info().Msg("stale session sweeper stopped")
}

func (j *StaleSessionSweeper) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.sweepOnce()
		}
	}
}

func (j *StaleSessionSweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(j.ctx, config.StaleSweepTimeout)
	defer cancel()

	result, err := j.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("stale session sweep failed")
		return
	}

	if result.Flagged > 0 || result.Failed > 0 {
		log.Info().
			Int("organizations", result.Organizations).
			Int("flagged", result.Flagged).
			Int("notified", result.Notified).
			Int("failed", result.Failed).
			Msg("stale session sweep finished")
	}
}

// Sweep runs one pass over every known organization. Sessions started at or
// before now minus the threshold are flagged. A failure to load one
// organization or to notify one user is logged and counted, and the pass
// moves on.
func (j *StaleSessionSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	orgIDs, err := j.sessionRepo.ListOrganizationIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list organizations: %w", err)
	}
	result.Organizations = len(orgIDs)

	now := j.clock.Now()
	cutoff := now.Add(-j.threshold)

	var notified, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(j.concurrency)

	for _, orgID := range orgIDs {
		if ctx.Err() != nil {
			break
		}

		stale, err := j.sessionRepo.FindOpenStartedBefore(ctx, orgID, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("organizationId", orgID).Msg("failed to load open sessions")
			failed.Add(1)
			continue
		}

		for _, s := range stale {
			result.Flagged++
			notice := notify.NewStaleSessionNotice(
				s.OrganizationID, s.UserKey, s.UserDisplayName, s.PublicID,
				s.StartTime, now.Sub(s.StartTime), j.clock.Location(),
			)

			g.Go(func() error {
				if err := j.notifier.NotifyStaleSession(ctx, notice); err != nil {
					log.Warn().
						Err(err).
						Str("organizationId", notice.OrganizationID).
						Str("userKey", notice.UserKey).
						Str("publicId", notice.PublicID).
						Msg("failed to send stale session notice")
					failed.Add(1)
					return nil
				}
				notified.Add(1)
				return nil
			})
		}
	}

	_ = g.Wait()

	result.Notified = int(notified.Load())
	result.Failed = int(failed.Load())
	return result, ctx.Err()
}
