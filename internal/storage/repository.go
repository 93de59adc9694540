package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/moexdata/moexpulse/internal/domain/models"
)

// PriceRepository defines the contract of the durable price cache.
//
// The store owns the PricePoint set and enforces uniqueness of
// (ticker, date) via a unique index; concurrent upserts racing on the same
// key resolve to the last committed writer's value.
type PriceRepository interface {
	// GetPrices returns all stored points for the ticker whose date falls
	// within the closed range, ordered by date ascending. An empty result is
	// not an error.
	GetPrices(ctx context.Context, ticker string, rng models.DateRange) ([]models.PricePoint, error)

	// UpsertPrices inserts or updates the given points for the ticker inside
	// a single transaction: either the whole batch is applied or none of it.
	UpsertPrices(ctx context.Context, ticker string, points []models.PricePoint) error
}

type priceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) PriceRepository {
	return &priceRepository{db: db}
}

const selectPricesQuery = `
	SELECT date, price
	FROM stock_data
	WHERE ticker = $1 AND date >= $2 AND date <= $3
	ORDER BY date ASC`

func (r *priceRepository) GetPrices(ctx context.Context, ticker string, rng models.DateRange) ([]models.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx, selectPricesQuery, ticker, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("select prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []models.PricePoint
	for rows.Next() {
		p := models.PricePoint{Ticker: ticker}
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		p.Date = models.TruncateToDay(p.Date)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}
	return points, nil
}

const upsertPriceQuery = `
	INSERT INTO stock_data (ticker, date, price)
	VALUES ($1, $2, $3)
	ON CONFLICT (ticker, date)
	DO UPDATE SET price = EXCLUDED.price,
				  updated_at = NOW()`

// UpsertPrices applies the batch in one transaction so a partially written
// fetch can never be observed.
func (r *priceRepository) UpsertPrices(ctx context.Context, ticker string, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertPriceQuery)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, ticker, models.TruncateToDay(p.Date), p.Price); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s %s: %w", ticker, p.Date.Format(models.DateFormat), err)
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close upsert stmt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}
