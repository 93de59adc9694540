// Package moex implements the client for the MOEX ISS market-data API.
//
// One fetch issues one GET against the daily-candles endpoint for a ticker
// and a from/till window, and parses the tabular response into price points.
// The client holds no retry policy and no state besides the shared HTTP
// client, so it is safe to use concurrently across tickers.
package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/moexdata/moexpulse/internal/apperror"
	"github.com/moexdata/moexpulse/internal/domain/models"
)

const (
	candlesPath = "/iss/engines/stock/markets/shares/securities/%s/candles.json"

	// Daily candles in ISS terms.
	dailyInterval = "24"

	// Fixed row positions within candles.data:
	// [open, close, high, low, value, volume, begin, end]
	closeColumn = 1
	beginColumn = 6
	minColumns  = 7

	beginTimeLayout = "2006-01-02 15:04:05"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client fetches closing-price series from the MOEX ISS API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client around a shared HTTP client. The same *http.Client
// (and its connection pool) is reused across all fetches; its Timeout bounds
// each upstream call.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// candlesResponse mirrors the subset of the ISS payload the service reads.
// Rows are heterogeneous arrays, so they decode as []any.
type candlesResponse struct {
	Candles struct {
		Columns []string `json:"columns"`
		Data    [][]any  `json:"data"`
	} `json:"candles"`
}

// Candles returns the daily closing prices for ticker within the closed
// range, ordered as the upstream returns them (ascending by day).
//
// An absent or empty rows array means the ticker has no data in the range
// (delisted, unknown, or no trading days): the result is an empty slice and
// a nil error. Transport failures, non-2xx statuses, and malformed rows
// return an upstream-kind error carrying the ticker and cause.
func (c *Client) Candles(ctx context.Context, ticker string, rng models.DateRange) ([]models.PricePoint, error) {
	if ticker == "" {
		return nil, apperror.Upstream(ticker, fmt.Errorf("empty ticker"))
	}

	q := url.Values{}
	q.Set("from", rng.Start.Format(models.DateFormat))
	q.Set("till", rng.End.Format(models.DateFormat))
	q.Set("interval", dailyInterval)
	q.Set("iss.meta", "off")
	q.Set("iss.only", "candles")

	u := c.baseURL + fmt.Sprintf(candlesPath, url.PathEscape(ticker)) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperror.Upstream(ticker, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Upstream(ticker, fmt.Errorf("do request: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, apperror.Upstream(ticker, fmt.Errorf("iss http %d", res.StatusCode))
	}

	var body candlesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, apperror.Upstream(ticker, fmt.Errorf("decode response: %w", err))
	}

	points := make([]models.PricePoint, 0, len(body.Candles.Data))
	for i, row := range body.Candles.Data {
		p, err := parseRow(ticker, row)
		if err != nil {
			return nil, apperror.Upstream(ticker, fmt.Errorf("row %d: %w", i, err))
		}
		points = append(points, p)
	}
	return points, nil
}

func parseRow(ticker string, row []any) (models.PricePoint, error) {
	if len(row) < minColumns {
		return models.PricePoint{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(row))
	}

	closeRaw, ok := row[closeColumn].(float64)
	if !ok {
		return models.PricePoint{}, fmt.Errorf("close price %v is not numeric", row[closeColumn])
	}

	beginRaw, ok := row[beginColumn].(string)
	if !ok {
		return models.PricePoint{}, fmt.Errorf("begin timestamp %v is not a string", row[beginColumn])
	}
	begin, err := time.Parse(beginTimeLayout, beginRaw)
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("parse begin %q: %w", beginRaw, err)
	}

	return models.PricePoint{
		Ticker: ticker,
		Date:   models.TruncateToDay(begin),
		Price:  closeRaw,
	}, nil
}
