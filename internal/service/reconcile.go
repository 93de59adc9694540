package service

import (
	"context"
	"time"

	"github.com/moexdata/moexpulse/internal/apperror"
	"github.com/moexdata/moexpulse/internal/domain/models"
	"github.com/moexdata/moexpulse/internal/logger"
)

// reconcile produces the complete series for one ticker over one range,
// calling upstream only when the cache has gaps.
//
// Steps:
//  1. Load cached points for the range.
//  2. Compute the missing calendar days.
//  3. If any are missing, fetch the single contiguous span covering them,
//     write the result back, and merge it over the cached points.
//  4. Build the series from points inside the original range.
//
// A write-back failure after a successful fetch does not discard the fetched
// data: the points are still served and the range simply re-fetches next time.
func (s *seriesService) reconcile(ctx context.Context, ticker string, rng models.DateRange) (models.Series, error) {
	cached, err := s.repo.GetPrices(ctx, ticker, rng)
	if err != nil {
		return nil, apperror.Store(ticker, err)
	}

	missing := missingDates(cached, rng)
	if len(missing) > 0 {
		span := models.DateRange{Start: missing[0], End: missing[len(missing)-1]}
		logger.L().Debug().
			Str("ticker", ticker).
			Int("cached", len(cached)).
			Int("missing", len(missing)).
			Str("fetch_from", span.Start.Format(models.DateFormat)).
			Str("fetch_till", span.End.Format(models.DateFormat)).
			Msg("fetching missing span")

		fetched, err := s.source.Candles(ctx, ticker, span)
		if err != nil {
			return nil, err
		}

		if len(fetched) > 0 {
			if err := s.repo.UpsertPrices(ctx, ticker, fetched); err != nil {
				// Serve the fetched points anyway; the cache re-fetches this
				// span on the next request.
				logger.L().Error().Str("ticker", ticker).Err(err).Msg("cache write-back failed")
			}
			cached = mergePoints(cached, fetched)
		}
	}

	series := make(models.Series, len(cached))
	for _, p := range cached {
		if !rng.Contains(p.Date) {
			continue
		}
		series[p.Date.Format(models.DateFormat)] = p.Price
	}
	return series, nil
}

// missingDates walks the range calendar day by calendar day and returns the
// days with no cached point, in ascending order.
//
// Non-trading days (weekends, holidays) are counted as missing too: they have
// no cached point and the upstream returns nothing for them, so they are
// re-queried on every request. Known imprecision, kept because filtering
// through a trading calendar would change the observable fetch pattern.
func missingDates(cached []models.PricePoint, rng models.DateRange) []time.Time {
	have := make(map[string]struct{}, len(cached))
	for _, p := range cached {
		have[p.Date.Format(models.DateFormat)] = struct{}{}
	}

	var missing []time.Time
	for _, d := range rng.Days() {
		if _, ok := have[d.Format(models.DateFormat)]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// mergePoints unions fetched points over cached ones; on the same date the
// fetched value wins (the upstream may revise historical closes).
func mergePoints(cached, fetched []models.PricePoint) []models.PricePoint {
	byDate := make(map[string]models.PricePoint, len(cached)+len(fetched))
	for _, p := range cached {
		byDate[p.Date.Format(models.DateFormat)] = p
	}
	for _, p := range fetched {
		byDate[p.Date.Format(models.DateFormat)] = p
	}

	out := make([]models.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	return out
}
