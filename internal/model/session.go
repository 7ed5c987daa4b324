package model

import (
	"time"
)

// WorkSession is one clock-in/clock-out interval. EndTime is nil while the
// session is open.
type WorkSession struct {
	ID              string     `db:"id" json:"id"`
	OrganizationID  string     `db:"organization_id" json:"organizationId"`
	UserKey         string     `db:"user_key" json:"userKey"`
	UserDisplayName string     `db:"user_display_name" json:"userDisplayName"`
	PublicID        string     `db:"public_id" json:"publicId"`
	StartTime       time.Time  `db:"start_time" json:"startTime"`
	EndTime         *time.Time `db:"end_time" json:"endTime,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

func (s *WorkSession) IsOpen() bool {
	return s.EndTime == nil
}

func (s *WorkSession) Status() WorkSessionStatus {
	if s.IsOpen() {
		return WorkSessionStatusOpen
	}
	return WorkSessionStatusClosed
}

// Duration is zero for open sessions and negative for inconsistent ones.
func (s *WorkSession) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Inconsistent reports an end time earlier than the start time, which
// edits are allowed to produce.
func (s *WorkSession) Inconsistent() bool {
	return s.EndTime != nil && s.EndTime.Before(s.StartTime)
}

type CreateWorkSessionParams struct {
	OrganizationID  string
	UserKey         string
	UserDisplayName string
	PublicID        string
	StartTime       time.Time
}

type UpdateWorkSessionTimesParams struct {
	StartTime time.Time
	EndTime   *time.Time
}

// WorkSessionFilter selects sessions inside one organization. Zero values
// mean "no constraint".
type WorkSessionFilter struct {
	UserKey    string
	ClosedOnly bool
	EndRange   DateRange
}
