package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/audit"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/export"
	"github.com/openclaw/timeclock-server-go/internal/httputil"
	"github.com/openclaw/timeclock-server-go/internal/service"
	"github.com/openclaw/timeclock-server-go/internal/util"
)

// ExportHandler serves report files to administrators outside the chat.
type ExportHandler struct {
	reportService  *service.ReportService
	sessionService *service.SessionService
}

func NewExportHandler(reportService *service.ReportService, sessionService *service.SessionService) *ExportHandler {
	return &ExportHandler{reportService: reportService, sessionService: sessionService}
}

func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{orgID}/exports/{report}", h.Download)
	return r
}

func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	report := chi.URLParam(r, "report")

	if !util.IsValidIdentifier(orgID) {
		httputil.WriteError(w, apperrors.InvalidInput("orgID", "must be a non-empty key without spaces"))
		return
	}
	if report != service.ReportSessions && report != service.ReportTotals {
		httputil.WriteError(w, apperrors.NotFound("Report"))
		return
	}

	q := r.URL.Query()
	startDate, endDate := q.Get("start_date"), q.Get("end_date")

	exporter, err := export.NewExporter(q.Get("format"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("format", err.Error()))
		return
	}

	dateRange, err := service.RequireDateRange(startDate, endDate, h.sessionService.Location())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	table, err := h.reportService.Build(r.Context(), orgID, report, dateRange)
	if err != nil {
		log.Error().Err(err).Str("organizationId", orgID).Str("report", report).Msg("failed to build report")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(table, &buf); err != nil {
		log.Error().Err(err).Str("report", report).Msg("failed to encode report")
		httputil.WriteError(w, apperrors.Internal("Failed to encode report"))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:           audit.EventExportDownload,
		OrganizationID: orgID,
		Details: map[string]interface{}{
			"report":     report,
			"format":     exporter.Extension(),
			"start_date": startDate,
			"end_date":   endDate,
			"rows":       len(table.Rows),
			"via":        "http",
		},
	})

	filename := export.Filename(table, startDate, endDate, exporter)
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
