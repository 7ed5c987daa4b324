// Package clock is the time source for the work session engine. All
// user-facing parsing and rendering happens in one configured civil timezone.
package clock

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	DateTimeLayout     = "2006-01-02 15:04"
	DateLayout         = "2006-01-02"
	PublicIDDateLayout = "060102"
)

type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Location() *time.Location {
	return c.loc
}

// Fake is a manually driven Clock.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// ParseDateTime parses "YYYY-MM-DD HH:MM" as a wall-clock time in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, strings.Join(strings.Fields(s), " "), loc)
}

// ParseDate parses "YYYY-MM-DD" as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// NextDay returns midnight of the civil day after t's day in loc.
func NextDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}

func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateTimeLayout)
}

// FormatOptional renders an absent instant as fallback.
func FormatOptional(t *time.Time, loc *time.Location, fallback string) string {
	if t == nil {
		return fallback
	}
	return FormatDateTime(*t, loc)
}

// PublicIDPrefix is the YYMMDD civil date of t in loc.
func PublicIDPrefix(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(PublicIDDateLayout)
}
