// Package service contains the cache-reconciliation core: filling the gaps
// between the durable price cache and a requested date range from the MOEX
// ISS API, fanned out concurrently across tickers.
package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/moexdata/moexpulse/internal/domain/models"
	"github.com/moexdata/moexpulse/internal/logger"
	"github.com/moexdata/moexpulse/internal/storage"
)

// PriceSource is the upstream market-data contract consumed by the engine.
// Implemented by the moex client; faked in tests.
type PriceSource interface {
	Candles(ctx context.Context, ticker string, rng models.DateRange) ([]models.PricePoint, error)
}

// SeriesService assembles complete per-ticker closing-price series,
// fetching from the upstream source only what the cache is missing.
type SeriesService interface {
	FetchSeries(ctx context.Context, tickers []string, rng models.DateRange) *Result
}

// Result holds the outcome of one fan-out: an entry in Series for every
// requested ticker. Tickers whose reconciliation failed carry an empty
// series plus an entry in Errors; a failure never removes a ticker from
// the response.
type Result struct {
	Series map[string]models.Series
	Errors map[string]error
}

type seriesService struct {
	repo   storage.PriceRepository
	source PriceSource
}

// NewSeriesService wires the reconciliation engine to its collaborators.
// The source is shared by reference across all concurrent per-ticker units.
func NewSeriesService(repo storage.PriceRepository, source PriceSource) SeriesService {
	return &seriesService{repo: repo, source: source}
}

// FetchSeries runs the reconciliation engine once per ticker concurrently.
//
// Per-ticker units are fully independent: one ticker's upstream failure or
// slowness never blocks or aborts the others, and each ticker's cache write
// commits on its own. The call itself never fails; input validation happens
// at the request boundary before the service runs.
func (s *seriesService) FetchSeries(ctx context.Context, tickers []string, rng models.DateRange) *Result {
	res := &Result{
		Series: make(map[string]models.Series, len(tickers)),
		Errors: make(map[string]error),
	}

	var mu sync.Mutex
	var g errgroup.Group

	for _, ticker := range tickers {
		g.Go(func() error {
			series, err := s.reconcile(ctx, ticker, rng)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.L().Error().Str("ticker", ticker).Err(err).Msg("ticker reconciliation failed")
				res.Series[ticker] = models.Series{}
				res.Errors[ticker] = err
				return nil // contain the failure at the ticker boundary
			}
			res.Series[ticker] = series
			return nil
		})
	}

	_ = g.Wait()
	return res
}
