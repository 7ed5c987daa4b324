package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/timeclock-server-go/internal/audit"
	"github.com/openclaw/timeclock-server-go/internal/clock"
	"github.com/openclaw/timeclock-server-go/internal/config"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/httputil"
	"github.com/openclaw/timeclock-server-go/internal/middleware"
	"github.com/openclaw/timeclock-server-go/internal/model"
	redisclient "github.com/openclaw/timeclock-server-go/internal/redis"
	"github.com/openclaw/timeclock-server-go/internal/service"
	"github.com/openclaw/timeclock-server-go/internal/util"
)

const ongoing = "Ongoing"

var helpLines = []ReplyField{
	{Name: "/start", Value: "Start working"},
	{Name: "/end", Value: "End working"},
	{Name: "/edit [id] [new_start] [new_end]", Value: "Edit work hours, or list your entries without arguments"},
	{Name: "/check", Value: "Check your last 10 entries and total hours"},
	{Name: "/list [start_date] [end_date]", Value: "List total work hours of all users"},
	{Name: "/export-data start_date end_date", Value: "Export every session in the range"},
	{Name: "/export-total start_date end_date", Value: "Export total minutes per user in the range"},
	{Name: "/admin-end [id]", Value: "End someone's session (administrators)"},
	{Name: "/admin-edit [id] [new_start] [new_end]", Value: "Edit someone's session (administrators)"},
}

type CommandHandler struct {
	sessionService   *service.SessionService
	aggregateService *service.AggregateService
	reportService    *service.ReportService
	limiter          middleware.Limiter
	rateLimit        int
	loc              *time.Location
}

func NewCommandHandler(
	sessionService *service.SessionService,
	aggregateService *service.AggregateService,
	reportService *service.ReportService,
	limiter middleware.Limiter,
	rateLimit int,
) *CommandHandler {
	if rateLimit <= 0 {
		rateLimit = config.DefaultCommandRateLimitPerMin
	}
	return &CommandHandler{
		sessionService:   sessionService,
		aggregateService: aggregateService,
		reportService:    reportService,
		limiter:          limiter,
		rateLimit:        rateLimit,
		loc:              sessionService.Location(),
	}
}

func (h *CommandHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid command request")
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	orgID := req.Organization.ID
	if !util.IsValidIdentifier(orgID) {
		httputil.WriteError(w, apperrors.InvalidInput("organization.id", "must be a non-empty key without spaces"))
		return
	}
	if !util.IsValidIdentifier(req.User.Key) {
		httputil.WriteError(w, apperrors.InvalidInput("user.key", "must be a non-empty key without spaces"))
		return
	}

	cmd := resolveCommand(&req)
	if cmd == nil {
		writeJSON(w, http.StatusOK, errorReply("Unknown command. Use /help to see available commands."))
		return
	}

	if h.limiter != nil {
		key := redisclient.CommandRateLimitKey(orgID, req.User.Key)
		allowed, _, _ := h.limiter.Check(r.Context(), key, h.rateLimit)
		if !allowed {
			audit.LogFromRequest(r, audit.Event{
				Type:           audit.EventRateLimitExceed,
				OrganizationID: orgID,
				ActorKey:       req.User.Key,
				Details:        map[string]interface{}{"command": cmd.Name},
			})
			writeJSON(w, http.StatusTooManyRequests, errorReply("You are sending commands too quickly. Please wait a minute."))
			return
		}
	}

	actor := service.Actor{
		UserKey:     req.User.Key,
		DisplayName: req.User.DisplayName,
		IsAdmin:     req.User.IsAdmin,
	}
	if actor.DisplayName == "" {
		actor.DisplayName = actor.UserKey
	}

	log.Debug().
		Str("organizationId", orgID).
		Str("userKey", actor.UserKey).
		Str("command", cmd.Name).
		Msg("command received")

	resp, err := h.dispatch(r.Context(), orgID, actor, cmd)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			writeJSON(w, http.StatusOK, h.errorResponse(appErr))
			return
		}
		log.Error().
			Err(err).
			Str("organizationId", orgID).
			Str("userKey", actor.UserKey).
			Str("command", cmd.Name).
			Msg("command failed")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CommandHandler) dispatch(ctx context.Context, orgID string, actor service.Actor, cmd *Command) (CommandResponse, error) {
	opts := cmd.Options

	switch cmd.Name {
	case CmdStart:
		return h.start(ctx, orgID, actor)
	case CmdEnd:
		return h.end(ctx, orgID, actor)
	case CmdEdit:
		if opts.PublicID == "" || opts.NewStart == "" || opts.NewEnd == "" {
			return h.listForEdit(ctx, orgID, actor)
		}
		return h.edit(ctx, orgID, actor, opts)
	case CmdAdminEdit:
		if !actor.IsAdmin {
			return CommandResponse{}, apperrors.Forbidden("Administrator permission is required")
		}
		if opts.PublicID == "" || opts.NewStart == "" || opts.NewEnd == "" {
			return CommandResponse{}, apperrors.ValidationError("Use /admin-edit [id] [new_start] [new_end]")
		}
		return h.edit(ctx, orgID, actor, opts)
	case CmdCheck:
		return h.check(ctx, orgID, actor)
	case CmdList:
		return h.list(ctx, orgID, opts)
	case CmdExportData:
		return h.export(ctx, orgID, actor, service.ReportSessions, opts)
	case CmdExportTotal:
		return h.export(ctx, orgID, actor, service.ReportTotals, opts)
	case CmdAdminEnd:
		return h.adminEnd(ctx, orgID, actor, opts)
	case CmdHelp:
		return CommandResponse{Reply: Reply{
			Kind:        ReplyInfo,
			Title:       "Commands",
			Description: fmt.Sprintf("Times use YYYY-MM-DD HH:MM in %s.", h.loc),
			Fields:      helpLines,
		}}, nil
	default:
		return errorReply("Unknown command. Use /help to see available commands."), nil
	}
}

func (h *CommandHandler) start(ctx context.Context, orgID string, actor service.Actor) (CommandResponse, error) {
	session, err := h.sessionService.StartSession(ctx, orgID, actor)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{
		Kind:        ReplySuccess,
		Title:       "Work Start",
		Description: "Work started at " + clock.FormatDateTime(session.StartTime, h.loc),
	}
	reply.AddField("Entry ID", session.PublicID)
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) end(ctx context.Context, orgID string, actor service.Actor) (CommandResponse, error) {
	session, err := h.sessionService.EndSession(ctx, orgID, actor)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{
		Kind:        ReplySuccess,
		Title:       "Work End",
		Description: "Work ended at " + clock.FormatOptional(session.EndTime, h.loc, ""),
	}
	reply.AddField("Entry ID", session.PublicID)
	reply.AddField("Minutes", service.FormatMinutes(session.Duration().Minutes()))
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) listForEdit(ctx context.Context, orgID string, actor service.Actor) (CommandResponse, error) {
	sessions, err := h.sessionService.ListSessionsForUser(ctx, orgID, actor.UserKey, 0)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{
		Kind:        ReplyInfo,
		Title:       "Edit Work Hours",
		Description: "Here are your entries. Use /edit [id] [new_start] [new_end] to edit an entry.",
	}
	for i := range sessions {
		h.addSessionField(&reply, &sessions[i])
	}
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) edit(ctx context.Context, orgID string, actor service.Actor, opts CommandOptions) (CommandResponse, error) {
	if !util.IsValidPublicID(opts.PublicID) {
		return CommandResponse{}, apperrors.NotFound("Work session")
	}

	result, err := h.sessionService.EditSession(ctx, orgID, actor, opts.PublicID, opts.NewStart, opts.NewEnd)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{
		Kind:        ReplySuccess,
		Title:       "Work Edited",
		Description: fmt.Sprintf("Entry %s has been updated.", result.Session.PublicID),
	}
	if result.ByAdmin {
		reply.AddField("User", result.Session.UserDisplayName)
	}
	reply.AddField("Old Start", clock.FormatDateTime(result.OldStart, h.loc))
	reply.AddField("Old End", clock.FormatOptional(result.OldEnd, h.loc, ongoing))
	reply.AddField("New Start", clock.FormatDateTime(result.NewStart, h.loc))
	reply.AddField("New End", clock.FormatOptional(result.NewEnd, h.loc, ongoing))
	if result.Inconsistent() {
		reply.AddField("Warning", "The end time is before the start time.")
	}
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) check(ctx context.Context, orgID string, actor service.Actor) (CommandResponse, error) {
	sessions, err := h.sessionService.ListSessionsForUser(ctx, orgID, actor.UserKey, config.RecentSessionsLimit)
	if err != nil {
		return CommandResponse{}, err
	}
	total, err := h.aggregateService.UserTotal(ctx, orgID, actor.UserKey)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{Kind: ReplyInfo, Title: "Your Work Hours"}
	for i := range sessions {
		h.addSessionField(&reply, &sessions[i])
	}
	reply.AddField("Total Minutes", service.FormatMinutes(total.Minutes()))
	reply.AddField("Total Hours", service.FormatMinutes(total.Hours()))
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) list(ctx context.Context, orgID string, opts CommandOptions) (CommandResponse, error) {
	r, err := service.ParseDateRange(opts.StartDate, opts.EndDate, h.loc)
	if err != nil {
		return CommandResponse{}, err
	}
	totals, err := h.aggregateService.Totals(ctx, orgID, "", r)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{Kind: ReplyInfo, Title: "All Users Work Hours", Description: describeRange(opts)}
	if len(totals) == 0 {
		reply.Description = strings.TrimSpace(reply.Description + " No completed work sessions.")
	}

	labeled := service.LabelTotals(totals)
	labels := make([]string, 0, len(labeled))
	for label := range labeled {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		t := labeled[label]
		value := fmt.Sprintf("Total Minutes: %s (%s hours)",
			service.FormatMinutes(t.Minutes()), service.FormatMinutes(t.Hours()))
		if t.Inconsistent > 0 {
			value += fmt.Sprintf("\nIncludes %d entries ending before they start", t.Inconsistent)
		}
		reply.AddField(label, value)
	}
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) export(ctx context.Context, orgID string, actor service.Actor, report string, opts CommandOptions) (CommandResponse, error) {
	r, err := service.RequireDateRange(opts.StartDate, opts.EndDate, h.loc)
	if err != nil {
		return CommandResponse{}, err
	}
	table, err := h.reportService.Build(ctx, orgID, report, r)
	if err != nil {
		return CommandResponse{}, err
	}

	audit.Log(ctx, audit.Event{
		Type:           audit.EventExportDownload,
		OrganizationID: orgID,
		ActorKey:       actor.UserKey,
		Details: map[string]interface{}{
			"report":     report,
			"start_date": opts.StartDate,
			"end_date":   opts.EndDate,
			"rows":       len(table.Rows),
			"via":        "command",
		},
	})

	reply := Reply{
		Kind:        ReplySuccess,
		Title:       "Export Ready",
		Description: fmt.Sprintf("%d rows from %s to %s.", len(table.Rows), opts.StartDate, opts.EndDate),
	}
	return CommandResponse{Reply: reply, Table: table}, nil
}

func (h *CommandHandler) adminEnd(ctx context.Context, orgID string, actor service.Actor, opts CommandOptions) (CommandResponse, error) {
	if !actor.IsAdmin {
		return CommandResponse{}, apperrors.Forbidden("Administrator permission is required")
	}
	if opts.PublicID == "" {
		return CommandResponse{}, apperrors.ValidationError("Use /admin-end [id]")
	}
	if !util.IsValidPublicID(opts.PublicID) {
		return CommandResponse{}, apperrors.NotFound("Open work session")
	}

	session, err := h.sessionService.AdminForceEnd(ctx, orgID, actor, opts.PublicID)
	if err != nil {
		return CommandResponse{}, err
	}

	reply := Reply{
		Kind:        ReplySuccess,
		Title:       "Work Ended by Admin",
		Description: fmt.Sprintf("Entry %s has been ended.", session.PublicID),
	}
	reply.AddField("User", session.UserDisplayName)
	reply.AddField("Start", clock.FormatDateTime(session.StartTime, h.loc))
	reply.AddField("End", clock.FormatOptional(session.EndTime, h.loc, ongoing))
	return CommandResponse{Reply: reply}, nil
}

func (h *CommandHandler) addSessionField(reply *Reply, s *model.WorkSession) {
	value := fmt.Sprintf("Start: %s\nEnd: %s",
		clock.FormatDateTime(s.StartTime, h.loc),
		clock.FormatOptional(s.EndTime, h.loc, ongoing))
	if s.Inconsistent() {
		value += "\n(end is before start)"
	}
	reply.AddField("ID: "+s.PublicID, value)
}

// errorResponse turns an engine error into the message users see.
func (h *CommandHandler) errorResponse(appErr *apperrors.AppError) CommandResponse {
	switch appErr.Code {
	case apperrors.ErrCodeNotFound:
		return errorReply("No entry found with that ID.")
	case apperrors.ErrCodeNoOpenSession:
		return errorReply("No work session to end.")
	case apperrors.ErrCodeAlreadyOpen:
		resp := errorReply("A work session is already in progress. Use /end first.")
		if details, ok := appErr.Details.(map[string]string); ok && details["publicId"] != "" {
			resp.Reply.AddField("Entry ID", details["publicId"])
		}
		return resp
	default:
		return errorReply(appErr.Message)
	}
}

func describeRange(opts CommandOptions) string {
	switch {
	case opts.StartDate != "" && opts.EndDate != "":
		return fmt.Sprintf("From %s to %s.", opts.StartDate, opts.EndDate)
	case opts.StartDate != "":
		return fmt.Sprintf("From %s.", opts.StartDate)
	case opts.EndDate != "":
		return fmt.Sprintf("Until %s.", opts.EndDate)
	default:
		return ""
	}
}
