package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/audit"
	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/config"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/model"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

const dateTimeFormatHint = "YYYY-MM-DD HH:MM"

// Actor is the user invoking a command. IsAdmin is resolved by the chat
// platform binding and trusted as given.
type Actor struct {
	UserKey     string
	DisplayName string
	IsAdmin     bool
}

type EditResult struct {
	Session  *model.WorkSession
	OldStart time.Time
	OldEnd   *time.Time
	NewStart time.Time
	NewEnd   *time.Time
	ByAdmin  bool
}

// Inconsistent reports an edit that left the end before the start.
func (r *EditResult) Inconsistent() bool {
	return r.Session.Inconsistent()
}

type SessionService struct {
	sessionRepo repository.WorkSessionRepository
	ids         *IDAllocator
	clock       clock.Clock
}

func NewSessionService(sessionRepo repository.WorkSessionRepository, clk clock.Clock) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		ids:         NewIDAllocator(sessionRepo, clk.Location()),
		clock:       clk,
	}
}

func (s *SessionService) StartSession(ctx context.Context, orgID string, actor Actor) (*model.WorkSession, error) {
	existing, err := s.sessionRepo.FindOpenByUser(ctx, orgID, actor.UserKey)
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyOpen().WithDetails(map[string]string{"publicId": existing.PublicID})
	}

	now := s.clock.Now()

	for attempt := 1; attempt <= config.PublicIDAllocationAttempts; attempt++ {
		publicID, err := s.ids.Allocate(ctx, orgID, now)
		if err != nil {
			return nil, err
		}

		session, err := s.sessionRepo.Create(ctx, model.CreateWorkSessionParams{
			OrganizationID:  orgID,
			UserKey:         actor.UserKey,
			UserDisplayName: actor.DisplayName,
			PublicID:        publicID,
			StartTime:       now,
		})
		switch {
		case err == nil:
			log.Info().
				Str("organizationId", orgID).
				Str("userKey", actor.UserKey).
				Str("publicId", session.PublicID).
				Time("startTime", session.StartTime).
				Msg("work session started")
			return session, nil

		case errors.Is(err, repository.ErrOpenSessionExists):
			return nil, apperrors.AlreadyOpen()

		case errors.Is(err, repository.ErrDuplicatePublicID):
			log.Warn().
				Str("organizationId", orgID).
				Str("publicId", publicID).
				Int("attempt", attempt).
				Msg("public id collision, reallocating")

		default:
			return nil, fmt.Errorf("create work session: %w", err)
		}
	}

	return nil, apperrors.New(apperrors.ErrCodeConflict, "Could not allocate a session id, please try again")
}

func (s *SessionService) EndSession(ctx context.Context, orgID string, actor Actor) (*model.WorkSession, error) {
	open, err := s.sessionRepo.FindOpenByUser(ctx, orgID, actor.UserKey)
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	if open == nil {
		return nil, apperrors.NoOpenSession()
	}

	closed, err := s.sessionRepo.Close(ctx, open.ID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("close work session: %w", err)
	}
	if closed == nil {
		return nil, apperrors.NoOpenSession()
	}

	log.Info().
		Str("organizationId", orgID).
		Str("userKey", actor.UserKey).
		Str("publicId", closed.PublicID).
		Dur("duration", closed.Duration()).
		Msg("work session ended")

	return closed, nil
}

// EditSession overwrites both times of a session. The owner or an admin may
// edit at any time, including after closure; no ordering is enforced.
func (s *SessionService) EditSession(
	ctx context.Context,
	orgID string,
	actor Actor,
	publicID, newStart, newEnd string,
) (*EditResult, error) {
	session, err := s.sessionRepo.FindByPublicID(ctx, orgID, publicID)
	if err != nil {
		return nil, fmt.Errorf("find work session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Work session")
	}

	byAdmin := session.UserKey != actor.UserKey
	if byAdmin && !actor.IsAdmin {
		return nil, apperrors.Forbidden("You can only edit your own work sessions")
	}

	loc := s.clock.Location()
	startTime, err := clock.ParseDateTime(newStart, loc)
	if err != nil {
		return nil, apperrors.InvalidRange(dateTimeFormatHint).WithCause(err)
	}
	endTime, err := clock.ParseDateTime(newEnd, loc)
	if err != nil {
		return nil, apperrors.InvalidRange(dateTimeFormatHint).WithCause(err)
	}

	previous, updated, err := s.sessionRepo.UpdateTimes(ctx, orgID, publicID, model.UpdateWorkSessionTimesParams{
		StartTime: startTime,
		EndTime:   &endTime,
	})
	if err != nil {
		return nil, fmt.Errorf("update work session: %w", err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("Work session")
	}

	result := &EditResult{
		Session:  updated,
		OldStart: previous.StartTime,
		OldEnd:   previous.EndTime,
		NewStart: updated.StartTime,
		NewEnd:   updated.EndTime,
		ByAdmin:  byAdmin,
	}

	eventType := audit.EventSessionEdit
	if byAdmin {
		eventType = audit.EventSessionAdminEdit
	}
	audit.Log(ctx, audit.Event{
		Type:           eventType,
		OrganizationID: orgID,
		ActorKey:       actor.UserKey,
		Details: map[string]interface{}{
			"public_id":    publicID,
			"owner_key":    updated.UserKey,
			"old_start":    result.OldStart,
			"old_end":      result.OldEnd,
			"new_start":    result.NewStart,
			"new_end":      result.NewEnd,
			"inconsistent": result.Inconsistent(),
		},
	})

	return result, nil
}

func (s *SessionService) AdminForceEnd(ctx context.Context, orgID string, actor Actor, publicID string) (*model.WorkSession, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("Administrator permission is required")
	}

	session, err := s.sessionRepo.FindByPublicID(ctx, orgID, publicID)
	if err != nil {
		return nil, fmt.Errorf("find work session: %w", err)
	}
	if session == nil || !session.IsOpen() {
		return nil, apperrors.NotFound("Open work session")
	}

	closed, err := s.sessionRepo.Close(ctx, session.ID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("close work session: %w", err)
	}
	if closed == nil {
		return nil, apperrors.NotFound("Open work session")
	}

	audit.Log(ctx, audit.Event{
		Type:           audit.EventSessionAdminEnd,
		OrganizationID: orgID,
		ActorKey:       actor.UserKey,
		Details: map[string]interface{}{
			"public_id": publicID,
			"owner_key": closed.UserKey,
			"end_time":  closed.EndTime,
		},
	})

	return closed, nil
}

// ListSessionsForUser returns the newest limit sessions when limit > 0 and
// every session otherwise.
func (s *SessionService) ListSessionsForUser(ctx context.Context, orgID, userKey string, limit int) ([]model.WorkSession, error) {
	sessions, err := s.sessionRepo.FindByUser(ctx, orgID, userKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list work sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) Location() *time.Location {
	return s.clock.Location()
}
