package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/moexdata/moexpulse/internal/apperror"
	"github.com/moexdata/moexpulse/internal/domain/models"
)

const (
	maxTickers   = 10
	maxTickerLen = 20
)

// SeriesRequest is the JSON body of POST /api/v1/stocks/series.
//
// Dates are calendar days in YYYY-MM-DD format; tickers are normalized to
// uppercase during validation.
type SeriesRequest struct {
	Tickers   []string `json:"tickers" example:"SBER,GAZP"`
	StartDate string   `json:"start_date" example:"2025-08-01"`
	EndDate   string   `json:"end_date" example:"2025-08-31"`
}

// nowFunc is an indirection for "today" checks; tests can override it.
var nowFunc = time.Now

// Parse validates the request and returns normalized tickers plus the
// requested date range.
//
// Rules (all violations are apperror.KindInvalidInput):
//   - 1 to 10 tickers, each non-empty after trimming and at most 20 chars;
//     tickers are uppercased.
//   - start_date and end_date parse as YYYY-MM-DD.
//   - start_date <= end_date.
//   - start_date is not after the current date.
func (r SeriesRequest) Parse() ([]string, models.DateRange, error) {
	if len(r.Tickers) == 0 {
		return nil, models.DateRange{}, apperror.InvalidInput("tickers must not be empty")
	}
	if len(r.Tickers) > maxTickers {
		return nil, models.DateRange{}, apperror.InvalidInput(fmt.Sprintf("at most %d tickers per request", maxTickers))
	}

	tickers := make([]string, 0, len(r.Tickers))
	for _, raw := range r.Tickers {
		t := strings.ToUpper(strings.TrimSpace(raw))
		if t == "" {
			return nil, models.DateRange{}, apperror.InvalidInput("ticker must not be empty")
		}
		if len(t) > maxTickerLen {
			return nil, models.DateRange{}, apperror.InvalidInput(fmt.Sprintf("ticker %q exceeds %d characters", t, maxTickerLen))
		}
		tickers = append(tickers, t)
	}

	start, err := time.Parse(models.DateFormat, r.StartDate)
	if err != nil {
		return nil, models.DateRange{}, apperror.InvalidInput("invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateFormat, r.EndDate)
	if err != nil {
		return nil, models.DateRange{}, apperror.InvalidInput("invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, models.DateRange{}, apperror.InvalidInput("end_date must not be before start_date")
	}
	if start.After(models.TruncateToDay(nowFunc())) {
		return nil, models.DateRange{}, apperror.InvalidInput("start_date must not be in the future")
	}

	rng := models.DateRange{
		Start: models.TruncateToDay(start),
		End:   models.TruncateToDay(end),
	}
	return tickers, rng, nil
}
