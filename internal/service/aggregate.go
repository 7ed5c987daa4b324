package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/model"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

// UserTotal is the summed duration of one user's closed sessions.
type UserTotal struct {
	UserKey     string
	DisplayName string
	Duration    time.Duration
	Sessions    int
	// Inconsistent counts sessions whose end precedes their start. Their
	// negative durations are included in Duration.
	Inconsistent int

	latestStart time.Time
}

func (t UserTotal) Minutes() float64 {
	return t.Duration.Seconds() / 60
}

func (t UserTotal) Hours() float64 {
	return t.Duration.Seconds() / 3600
}

// SumByUser groups closed sessions by user key. Open sessions are skipped.
// The display name is taken from the user's most recently started session.
// Results are ordered by display name, then user key.
func SumByUser(sessions []model.WorkSession) []UserTotal {
	byKey := make(map[string]*UserTotal)
	for i := range sessions {
		s := &sessions[i]
		if s.IsOpen() {
			continue
		}

		total, ok := byKey[s.UserKey]
		if !ok {
			total = &UserTotal{UserKey: s.UserKey}
			byKey[s.UserKey] = total
		}
		if total.Sessions == 0 || !s.StartTime.Before(total.latestStart) {
			total.DisplayName = s.UserDisplayName
			total.latestStart = s.StartTime
		}
		total.Duration += s.Duration()
		total.Sessions++
		if s.Inconsistent() {
			total.Inconsistent++
		}
	}

	totals := make([]UserTotal, 0, len(byKey))
	for _, t := range byKey {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].DisplayName != totals[j].DisplayName {
			return totals[i].DisplayName < totals[j].DisplayName
		}
		return totals[i].UserKey < totals[j].UserKey
	})
	return totals
}

// TotalLabels returns one display label per total, in the same order. Names
// shared by several users are suffixed with the user key.
func TotalLabels(totals []UserTotal) []string {
	seen := make(map[string]int, len(totals))
	for _, t := range totals {
		seen[t.DisplayName]++
	}

	labels := make([]string, len(totals))
	for i, t := range totals {
		labels[i] = t.DisplayName
		if seen[t.DisplayName] > 1 {
			labels[i] = fmt.Sprintf("%s (%s)", t.DisplayName, t.UserKey)
		}
	}
	return labels
}

// LabelTotals keys totals by their TotalLabels label so no totals are
// merged.
func LabelTotals(totals []UserTotal) map[string]UserTotal {
	labeled := make(map[string]UserTotal, len(totals))
	for i, label := range TotalLabels(totals) {
		labeled[label] = totals[i]
	}
	return labeled
}

type AggregateService struct {
	sessionRepo repository.WorkSessionRepository
	clock       clock.Clock
}

func NewAggregateService(sessionRepo repository.WorkSessionRepository, clk clock.Clock) *AggregateService {
	return &AggregateService{sessionRepo: sessionRepo, clock: clk}
}

// ClosedSessions returns closed sessions whose end time falls in r, ordered
// by start time. An empty userKey selects every user in the organization.
func (s *AggregateService) ClosedSessions(ctx context.Context, orgID, userKey string, r model.DateRange) ([]model.WorkSession, error) {
	sessions, err := s.sessionRepo.Find(ctx, orgID, model.WorkSessionFilter{
		UserKey:    userKey,
		ClosedOnly: true,
		EndRange:   r,
	})
	if err != nil {
		return nil, fmt.Errorf("find closed sessions: %w", err)
	}
	return sessions, nil
}

func (s *AggregateService) Totals(ctx context.Context, orgID, userKey string, r model.DateRange) ([]UserTotal, error) {
	sessions, err := s.ClosedSessions(ctx, orgID, userKey, r)
	if err != nil {
		return nil, err
	}
	return SumByUser(sessions), nil
}

// TotalMinutes maps display name to total minutes.
func (s *AggregateService) TotalMinutes(ctx context.Context, orgID, userKey string, r model.DateRange) (map[string]float64, error) {
	totals, err := s.Totals(ctx, orgID, userKey, r)
	if err != nil {
		return nil, err
	}

	minutes := make(map[string]float64, len(totals))
	for label, t := range LabelTotals(totals) {
		minutes[label] = t.Minutes()
	}
	return minutes, nil
}

// UserTotal returns the caller's own total. A user without closed sessions
// gets a zero total.
func (s *AggregateService) UserTotal(ctx context.Context, orgID, userKey string) (UserTotal, error) {
	totals, err := s.Totals(ctx, orgID, userKey, model.DateRange{})
	if err != nil {
		return UserTotal{}, err
	}
	if len(totals) == 0 {
		return UserTotal{UserKey: userKey}, nil
	}
	return totals[0], nil
}
