package service

import (
	"strings"
	"time"

	"github.com/openclaw/timeclock-server-go/internal/clock"
	apperrors "github.com/openclaw/timeclock-server-go/internal/errors"
	"github.com/openclaw/timeclock-server-go/internal/model"
)

const dateFormatHint = "YYYY-MM-DD"

// ParseDateRange turns optional YYYY-MM-DD bounds into the window
// [startDate 00:00, endDate+1 00:00) in loc. Blank bounds stay open.
func ParseDateRange(startDate, endDate string, loc *time.Location) (model.DateRange, error) {
	var r model.DateRange

	if startDate = strings.TrimSpace(startDate); startDate != "" {
		from, err := clock.ParseDate(startDate, loc)
		if err != nil {
			return model.DateRange{}, apperrors.InvalidRange(dateFormatHint).WithCause(err)
		}
		r.From = &from
	}

	if endDate = strings.TrimSpace(endDate); endDate != "" {
		end, err := clock.ParseDate(endDate, loc)
		if err != nil {
			return model.DateRange{}, apperrors.InvalidRange(dateFormatHint).WithCause(err)
		}
		to := clock.NextDay(end, loc)
		r.To = &to
	}

	return r, nil
}

// RequireDateRange is ParseDateRange with both bounds mandatory, as exports
// need them.
func RequireDateRange(startDate, endDate string, loc *time.Location) (model.DateRange, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return model.DateRange{}, apperrors.MissingRequired("start_date and end_date")
	}
	return ParseDateRange(startDate, endDate, loc)
}
