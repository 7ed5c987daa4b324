package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openclaw/timeclock-server-go/internal/database"
	"github.com/openclaw/timeclock-server-go/internal/model"
)

var (
	// ErrOpenSessionExists is returned by Create when the user already has
	// an open session in the organization.
	ErrOpenSessionExists = errors.New("open work session already exists")
	// ErrDuplicatePublicID is returned by Create when the public id is
	// already taken in the organization.
	ErrDuplicatePublicID = errors.New("public id already exists")
)

const (
	constraintOneOpenPerUser = "work_sessions_one_open_per_user_key"
	constraintPublicID       = "work_sessions_org_public_id_key"
	pqUniqueViolation        = "23505"
)

// WorkSessionRepository is the record store for work sessions. Every method
// except ListOrganizationIDs is scoped to one organization partition.
// Find* methods return nil without error when nothing matches.
type WorkSessionRepository interface {
	Create(ctx context.Context, params model.CreateWorkSessionParams) (*model.WorkSession, error)
	FindOpenByUser(ctx context.Context, orgID, userKey string) (*model.WorkSession, error)
	FindByPublicID(ctx context.Context, orgID, publicID string) (*model.WorkSession, error)
	// FindByUser returns the newest limit sessions when limit > 0, otherwise
	// every session of the user ordered by start time.
	FindByUser(ctx context.Context, orgID, userKey string, limit int) ([]model.WorkSession, error)
	Find(ctx context.Context, orgID string, filter model.WorkSessionFilter) ([]model.WorkSession, error)
	FindOpenStartedBefore(ctx context.Context, orgID string, cutoff time.Time) ([]model.WorkSession, error)
	CountByPublicIDPrefix(ctx context.Context, orgID, prefix string) (int, error)
	// Close sets end_time on a still-open session. It returns nil when the
	// session was closed concurrently.
	Close(ctx context.Context, id string, endTime time.Time) (*model.WorkSession, error)
	// UpdateTimes overwrites both times and returns the row as it was
	// before and after the update.
	UpdateTimes(ctx context.Context, orgID, publicID string, params model.UpdateWorkSessionTimesParams) (previous, updated *model.WorkSession, err error)
	ListOrganizationIDs(ctx context.Context) ([]string, error)
}

type workSessionRepo struct {
	db *database.DB
}

func NewWorkSessionRepository(db *database.DB) WorkSessionRepository {
	return &workSessionRepo{db: db}
}

func (r *workSessionRepo) Create(ctx context.Context, params model.CreateWorkSessionParams) (*model.WorkSession, error) {
	var session model.WorkSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO work_sessions
			(id, organization_id, user_key, user_display_name, public_id, start_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, uuid.NewString(), params.OrganizationID, params.UserKey, params.UserDisplayName,
		params.PublicID, params.StartTime)
	if err != nil {
		return nil, translateUniqueViolation(err)
	}
	return &session, nil
}

func (r *workSessionRepo) FindOpenByUser(ctx context.Context, orgID, userKey string) (*model.WorkSession, error) {
	var session model.WorkSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM work_sessions
		WHERE organization_id = $1 AND user_key = $2 AND end_time IS NULL
	`, orgID, userKey)
	return HandleNotFound(&session, err)
}

func (r *workSessionRepo) FindByPublicID(ctx context.Context, orgID, publicID string) (*model.WorkSession, error) {
	var session model.WorkSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM work_sessions
		WHERE organization_id = $1 AND public_id = $2
	`, orgID, publicID)
	return HandleNotFound(&session, err)
}

func (r *workSessionRepo) FindByUser(ctx context.Context, orgID, userKey string, limit int) ([]model.WorkSession, error) {
	var sessions []model.WorkSession
	if limit > 0 {
		err := r.db.SelectContext(ctx, &sessions, `
			SELECT * FROM work_sessions
			WHERE organization_id = $1 AND user_key = $2
			ORDER BY start_time DESC
			LIMIT $3
		`, orgID, userKey, limit)
		return sessions, err
	}

	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM work_sessions
		WHERE organization_id = $1 AND user_key = $2
		ORDER BY start_time ASC
	`, orgID, userKey)
	return sessions, err
}

func (r *workSessionRepo) Find(ctx context.Context, orgID string, filter model.WorkSessionFilter) ([]model.WorkSession, error) {
	conditions := []string{"organization_id = $1"}
	args := []any{orgID}

	addCondition := func(clause string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.UserKey != "" {
		addCondition("user_key = $%d", filter.UserKey)
	}
	if filter.ClosedOnly || !filter.EndRange.IsZero() {
		conditions = append(conditions, "end_time IS NOT NULL")
	}
	if filter.EndRange.From != nil {
		addCondition("end_time >= $%d", *filter.EndRange.From)
	}
	if filter.EndRange.To != nil {
		addCondition("end_time < $%d", *filter.EndRange.To)
	}

	query := "SELECT * FROM work_sessions WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY start_time ASC"

	var sessions []model.WorkSession
	err := r.db.SelectContext(ctx, &sessions, query, args...)
	return sessions, err
}

func (r *workSessionRepo) FindOpenStartedBefore(ctx context.Context, orgID string, cutoff time.Time) ([]model.WorkSession, error) {
	var sessions []model.WorkSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM work_sessions
		WHERE organization_id = $1 AND end_time IS NULL AND start_time <= $2
		ORDER BY start_time ASC
	`, orgID, cutoff)
	return sessions, err
}

func (r *workSessionRepo) CountByPublicIDPrefix(ctx context.Context, orgID, prefix string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM work_sessions
		WHERE organization_id = $1 AND public_id LIKE $2
	`, orgID, escapeLike(prefix)+"-%")
	return count, err
}

func (r *workSessionRepo) Close(ctx context.Context, id string, endTime time.Time) (*model.WorkSession, error) {
	var session model.WorkSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE work_sessions SET
			end_time = $2,
			updated_at = NOW()
		WHERE id = $1 AND end_time IS NULL
		RETURNING *
	`, id, endTime)
	return HandleNotFound(&session, err)
}

func (r *workSessionRepo) UpdateTimes(
	ctx context.Context,
	orgID, publicID string,
	params model.UpdateWorkSessionTimesParams,
) (*model.WorkSession, *model.WorkSession, error) {
	var previous, updated *model.WorkSession

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var before model.WorkSession
		err := tx.GetContext(ctx, &before, `
			SELECT * FROM work_sessions
			WHERE organization_id = $1 AND public_id = $2
			FOR UPDATE
		`, orgID, publicID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		var after model.WorkSession
		err = tx.GetContext(ctx, &after, `
			UPDATE work_sessions SET
				start_time = $2,
				end_time = $3,
				updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`, before.ID, params.StartTime, params.EndTime)
		if err != nil {
			return translateUniqueViolation(err)
		}

		previous, updated = &before, &after
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return previous, updated, nil
}

func (r *workSessionRepo) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT organization_id FROM work_sessions ORDER BY organization_id
	`)
	return ids, err
}

func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case constraintOneOpenPerUser:
		return ErrOpenSessionExists
	case constraintPublicID:
		return ErrDuplicatePublicID
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
