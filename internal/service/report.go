package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/export"
	"github.com/openclaw/timeclock-server-go/internal/model"
)

const (
	ReportSessions = "sessions"
	ReportTotals   = "totals"
)

var (
	sessionColumns = []string{"Name", "Public ID", "Start", "End", "Minutes", "Inconsistent"}
	totalColumns   = []string{"Name", "Total Minutes"}
)

// FormatMinutes renders minutes with two decimals.
func FormatMinutes(minutes float64) string {
	return fmt.Sprintf("%.2f", minutes)
}

// SessionsTable renders one row per closed session.
func SessionsTable(sessions []model.WorkSession, loc *time.Location) *export.Table {
	table := &export.Table{Name: ReportSessions, Columns: sessionColumns, Rows: [][]string{}}
	for i := range sessions {
		s := &sessions[i]
		if s.IsOpen() {
			continue
		}
		inconsistent := ""
		if s.Inconsistent() {
			inconsistent = "yes"
		}
		table.Rows = append(table.Rows, []string{
			s.UserDisplayName,
			s.PublicID,
			clock.FormatDateTime(s.StartTime, loc),
			clock.FormatDateTime(*s.EndTime, loc),
			FormatMinutes(s.Duration().Minutes()),
			inconsistent,
		})
	}
	return table
}

// TotalsTable renders one row per user in the order given, labeled like
// the list command.
func TotalsTable(totals []UserTotal) *export.Table {
	table := &export.Table{Name: ReportTotals, Columns: totalColumns, Rows: [][]string{}}
	for i, label := range TotalLabels(totals) {
		table.Rows = append(table.Rows, []string{label, FormatMinutes(totals[i].Minutes())})
	}
	return table
}

type ReportService struct {
	aggregate *AggregateService
	loc       *time.Location
}

func NewReportService(aggregate *AggregateService, loc *time.Location) *ReportService {
	return &ReportService{aggregate: aggregate, loc: loc}
}

// Build produces the named report for closed sessions ending inside r.
func (s *ReportService) Build(ctx context.Context, orgID, report string, r model.DateRange) (*export.Table, error) {
	switch report {
	case ReportSessions:
		sessions, err := s.aggregate.ClosedSessions(ctx, orgID, "", r)
		if err != nil {
			return nil, err
		}
		return SessionsTable(sessions, s.loc), nil

	case ReportTotals:
		totals, err := s.aggregate.Totals(ctx, orgID, "", r)
		if err != nil {
			return nil, err
		}
		return TotalsTable(totals), nil

	default:
		return nil, fmt.Errorf("unknown report: %s", report)
	}
}
