package models

import "time"

// DateFormat is the wire format for calendar days across the API,
// the MOEX client, and series keys.
const DateFormat = "2006-01-02"

// PricePoint is one observed closing price for one ticker on one calendar day.
//
// For a given (Ticker, Date) pair at most one point is stored; re-observing
// the same pair updates the price in place (the upstream source may revise
// historical closes).
type PricePoint struct {
	Ticker string    // Short uppercase symbol, 1-20 characters (e.g., "SBER")
	Date   time.Time // Trading/observation day, truncated to date
	Price  float64   // Closing price, finite and positive
}

// Series maps "YYYY-MM-DD" date keys to closing prices for one ticker.
// It is assembled per request from stored points and never persisted.
// Days with no data (weekends, holidays, delisted periods) are simply absent.
type Series map[string]float64

// DateRange is a closed calendar-day interval [Start, End].
// Invariants (enforced at the request boundary): Start <= End and
// Start not in the future relative to processing time.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day d falls within the closed range.
func (r DateRange) Contains(d time.Time) bool {
	d = TruncateToDay(d)
	return !d.Before(TruncateToDay(r.Start)) && !d.After(TruncateToDay(r.End))
}

// Days walks the range day by day, both ends inclusive.
func (r DateRange) Days() []time.Time {
	var out []time.Time
	end := TruncateToDay(r.End)
	for d := TruncateToDay(r.Start); !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// TruncateToDay strips the time-of-day component in UTC.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
