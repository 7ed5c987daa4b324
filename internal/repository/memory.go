package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/timeclock-server-go/internal/model"
)

// MemoryWorkSessionRepository keeps sessions in process memory. It enforces
// the same uniqueness rules as the Postgres schema and is used for tests
// and single-process development runs (DATABASE_URL=memory://).
type MemoryWorkSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.WorkSession
	now      func() time.Time
}

func NewMemoryWorkSessionRepository() *MemoryWorkSessionRepository {
	return &MemoryWorkSessionRepository{
		sessions: make(map[string]*model.WorkSession),
		now:      time.Now,
	}
}

var _ WorkSessionRepository = (*MemoryWorkSessionRepository)(nil)

func (r *MemoryWorkSessionRepository) Create(ctx context.Context, params model.CreateWorkSessionParams) (*model.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.OrganizationID != params.OrganizationID {
			continue
		}
		if s.UserKey == params.UserKey && s.EndTime == nil {
			return nil, ErrOpenSessionExists
		}
		if s.PublicID == params.PublicID {
			return nil, ErrDuplicatePublicID
		}
	}

	now := r.now()
	session := &model.WorkSession{
		ID:              uuid.NewString(),
		OrganizationID:  params.OrganizationID,
		UserKey:         params.UserKey,
		UserDisplayName: params.UserDisplayName,
		PublicID:        params.PublicID,
		StartTime:       params.StartTime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.sessions[session.ID] = session
	return copySession(session), nil
}

func (r *MemoryWorkSessionRepository) FindOpenByUser(ctx context.Context, orgID, userKey string) (*model.WorkSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.OrganizationID == orgID && s.UserKey == userKey && s.EndTime == nil {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (r *MemoryWorkSessionRepository) FindByPublicID(ctx context.Context, orgID, publicID string) (*model.WorkSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s := r.findByPublicIDLocked(orgID, publicID); s != nil {
		return copySession(s), nil
	}
	return nil, nil
}

func (r *MemoryWorkSessionRepository) FindByUser(ctx context.Context, orgID, userKey string, limit int) ([]model.WorkSession, error) {
	sessions := r.collect(func(s *model.WorkSession) bool {
		return s.OrganizationID == orgID && s.UserKey == userKey
	})

	if limit <= 0 {
		return sessions, nil
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (r *MemoryWorkSessionRepository) Find(ctx context.Context, orgID string, filter model.WorkSessionFilter) ([]model.WorkSession, error) {
	closedOnly := filter.ClosedOnly || !filter.EndRange.IsZero()

	return r.collect(func(s *model.WorkSession) bool {
		if s.OrganizationID != orgID {
			return false
		}
		if filter.UserKey != "" && s.UserKey != filter.UserKey {
			return false
		}
		if s.EndTime == nil {
			return !closedOnly
		}
		return filter.EndRange.Contains(*s.EndTime)
	}), nil
}

func (r *MemoryWorkSessionRepository) FindOpenStartedBefore(ctx context.Context, orgID string, cutoff time.Time) ([]model.WorkSession, error) {
	return r.collect(func(s *model.WorkSession) bool {
		return s.OrganizationID == orgID && s.EndTime == nil && !s.StartTime.After(cutoff)
	}), nil
}

func (r *MemoryWorkSessionRepository) CountByPublicIDPrefix(ctx context.Context, orgID, prefix string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.sessions {
		if s.OrganizationID == orgID && strings.HasPrefix(s.PublicID, prefix+"-") {
			count++
		}
	}
	return count, nil
}

func (r *MemoryWorkSessionRepository) Close(ctx context.Context, id string, endTime time.Time) (*model.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.EndTime != nil {
		return nil, nil
	}
	s.EndTime = &endTime
	s.UpdatedAt = r.now()
	return copySession(s), nil
}

func (r *MemoryWorkSessionRepository) UpdateTimes(
	ctx context.Context,
	orgID, publicID string,
	params model.UpdateWorkSessionTimesParams,
) (*model.WorkSession, *model.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findByPublicIDLocked(orgID, publicID)
	if s == nil {
		return nil, nil, nil
	}

	if params.EndTime == nil {
		for _, other := range r.sessions {
			if other.ID != s.ID && other.OrganizationID == orgID &&
				other.UserKey == s.UserKey && other.EndTime == nil {
				return nil, nil, ErrOpenSessionExists
			}
		}
	}

	previous := copySession(s)
	s.StartTime = params.StartTime
	s.EndTime = copyTime(params.EndTime)
	s.UpdatedAt = r.now()
	return previous, copySession(s), nil
}

func (r *MemoryWorkSessionRepository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, s := range r.sessions {
		seen[s.OrganizationID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryWorkSessionRepository) findByPublicIDLocked(orgID, publicID string) *model.WorkSession {
	for _, s := range r.sessions {
		if s.OrganizationID == orgID && s.PublicID == publicID {
			return s
		}
	}
	return nil
}

// collect returns copies of matching sessions ordered by start time.
func (r *MemoryWorkSessionRepository) collect(match func(*model.WorkSession) bool) []model.WorkSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.WorkSession
	for _, s := range r.sessions {
		if match(s) {
			out = append(out, *copySession(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].PublicID < out[j].PublicID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func copySession(s *model.WorkSession) *model.WorkSession {
	c := *s
	c.EndTime = copyTime(s.EndTime)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
