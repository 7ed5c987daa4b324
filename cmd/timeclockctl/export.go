package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/config"
	"github.com/openclaw/timeclock-server-go/internal/database"
	"github.com/openclaw/timeclock-server-go/internal/export"
	"github.com/openclaw/timeclock-server-go/internal/repository"
	"github.com/openclaw/timeclock-server-go/internal/service"
)

var (
	exportOrg    string
	exportFrom   string
	exportTo     string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [sessions|totals]",
	Short: "Export a work session report to a file",
	Long: `Export closed work sessions whose end time falls between --from and
--to (inclusive civil dates) as csv, yaml, json or markdown.

Without --out the report is written to a file named after the report and
range in the current directory. Use --out - to write to stdout.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{service.ReportSessions, service.ReportTotals},
	RunE: func(cmd *cobra.Command, args []string) error {
		report := args[0]

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}
		loc, err := location()
		if err != nil {
			return err
		}
		dateRange, err := service.RequireDateRange(exportFrom, exportTo, loc)
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		clk := clock.New(loc)
		aggregate := service.NewAggregateService(repository.NewWorkSessionRepository(db), clk)
		reports := service.NewReportService(aggregate, loc)

		ctx, cancel := context.WithTimeout(cmd.Context(), config.ServerRequestTimeout)
		defer cancel()

		table, err := reports.Build(ctx, exportOrg, report, dateRange)
		if err != nil {
			return err
		}

		out, path, err := openOutput(exportOut, export.Filename(table, exportFrom, exportTo, exporter))
		if err != nil {
			return err
		}
		defer out.Close()

		if err := exporter.Export(table, out); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		log.Info().
			Str("organizationId", exportOrg).
			Str("report", report).
			Int("rows", len(table.Rows)).
			Str("path", path).
			Msg("export written")
		return nil
	},
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(out, defaultName string) (io.WriteCloser, string, error) {
	switch out {
	case "-":
		return nopCloser{os.Stdout}, "stdout", nil
	case "":
		out = defaultName
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", out, err)
	}
	return f, out, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "organization id")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first civil date, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last civil date, YYYY-MM-DD")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv, yaml, json, md)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file, or - for stdout")
	_ = exportCmd.MarkFlagRequired("org")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(exportCmd)
}
