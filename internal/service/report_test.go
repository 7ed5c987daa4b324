package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/model"
	"github.com/openclaw/timeclock-server-go/internal/repository"
)

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "510.00", FormatMinutes(510))
	assert.Equal(t, "0.50", FormatMinutes(0.5))
	assert.Equal(t, "-60.00", FormatMinutes(-60))
}

func TestSessionsTable(t *testing.T) {
	sessions := []model.WorkSession{
		closedSession("U1", "alice", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 17, 30)),
		{UserKey: "U2", UserDisplayName: "bob", PublicID: "240301-002", StartTime: at(2024, 3, 1, 9, 0)},
		closedSession("U1", "alice", "240301-003", at(2024, 3, 1, 18, 0), at(2024, 3, 1, 17, 0)),
	}

	table := SessionsTable(sessions, tokyo)
	assert.Equal(t, ReportSessions, table.Name)
	assert.Equal(t, []string{"Name", "Public ID", "Start", "End", "Minutes", "Inconsistent"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"alice", "240301-001", "2024-03-01 09:00", "2024-03-01 17:30", "510.00", ""}, table.Rows[0])
	assert.Equal(t, "-60.00", table.Rows[1][4])
	assert.Equal(t, "yes", table.Rows[1][5])
}

func TestReportService_Build(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWorkSessionRepository()
	seed(t, repo, "U1", "alice", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 17, 30))
	seed(t, repo, "U2", "bob", "240301-002", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0))
	seed(t, repo, "U2", "bob", "240402-001", at(2024, 4, 2, 9, 0), at(2024, 4, 2, 10, 0))

	reports := NewReportService(NewAggregateService(repo, clock.NewFake(at(2024, 4, 3, 0, 0))), tokyo)
	r, err := ParseDateRange("2024-03-01", "2024-03-31", tokyo)
	require.NoError(t, err)

	t.Run("sessions", func(t *testing.T) {
		table, err := reports.Build(ctx, "G1", ReportSessions, r)
		require.NoError(t, err)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "240301-001", table.Rows[0][1])
	})

	t.Run("totals", func(t *testing.T) {
		table, err := reports.Build(ctx, "G1", ReportTotals, r)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"alice", "510.00"}, {"bob", "60.00"}}, table.Rows)
	})

	t.Run("empty range still has headers", func(t *testing.T) {
		empty, err := ParseDateRange("2023-01-01", "2023-01-31", tokyo)
		require.NoError(t, err)
		table, err := reports.Build(ctx, "G1", ReportTotals, empty)
		require.NoError(t, err)
		assert.Empty(t, table.Rows)
		assert.Len(t, table.Columns, 2)
	})

	t.Run("unknown report", func(t *testing.T) {
		_, err := reports.Build(ctx, "G1", "payroll", r)
		assert.Error(t, err)
	})
}

func TestReportService_TotalsSharedDisplayName(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWorkSessionRepository()
	seed(t, repo, "U1", "alice", "240301-001", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 0))
	seed(t, repo, "U2", "alice", "240301-002", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 10, 30))
	seed(t, repo, "U3", "bob", "240301-003", at(2024, 3, 1, 9, 0), at(2024, 3, 1, 9, 30))

	reports := NewReportService(NewAggregateService(repo, clock.NewFake(at(2024, 3, 2, 0, 0))), tokyo)
	r, err := ParseDateRange("2024-03-01", "2024-03-01", tokyo)
	require.NoError(t, err)

	table, err := reports.Build(ctx, "G1", ReportTotals, r)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"alice (U1)", "60.00"},
		{"alice (U2)", "90.00"},
		{"bob", "30.00"},
	}, table.Rows)
}

func TestTotalLabels(t *testing.T) {
	totals := []UserTotal{
		{UserKey: "U2", DisplayName: "alice"},
		{UserKey: "U3", DisplayName: "bob"},
		{UserKey: "U1", DisplayName: "alice"},
	}

	assert.Equal(t, []string{"alice (U2)", "bob", "alice (U1)"}, TotalLabels(totals))
	assert.Empty(t, TotalLabels(nil))
}
