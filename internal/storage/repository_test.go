package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/moexdata/moexpulse/internal/domain/models"
)

var (
	selectRegex = regexp.MustCompile(`SELECT date, price\s+FROM stock_data\s+WHERE ticker = \$1 AND date >= \$2 AND date <= \$3\s+ORDER BY date ASC`)
	upsertRegex = regexp.MustCompile(`INSERT INTO stock_data \(ticker, date, price\)\s+VALUES \(\$1, \$2, \$3\)\s+ON CONFLICT \(ticker, date\)\s+DO UPDATE SET price = EXCLUDED\.price`)
)

func newMockRepo(t *testing.T) (*priceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &priceRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func mustDay(s string) time.Time {
	d, err := time.Parse(models.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

func TestGetPrices_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rng := models.DateRange{Start: mustDay("2025-08-01"), End: mustDay("2025-08-03")}

	cases := []struct {
		name string
		rows *sqlmock.Rows
		want int
	}{
		{
			name: "two points ordered",
			rows: sqlmock.NewRows([]string{"date", "price"}).
				AddRow(mustDay("2025-08-01"), 270.5).
				AddRow(mustDay("2025-08-02"), 271.2),
			want: 2,
		},
		{
			name: "no rows",
			rows: sqlmock.NewRows([]string{"date", "price"}),
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock.ExpectQuery(selectRegex.String()).
				WithArgs("SBER", rng.Start, rng.End).
				WillReturnRows(tc.rows)

			out, err := repo.GetPrices(context.Background(), "SBER", rng)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out) != tc.want {
				t.Fatalf("got %d points, want %d", len(out), tc.want)
			}
			for _, p := range out {
				if p.Ticker != "SBER" {
					t.Fatalf("ticker not stamped on point: %+v", p)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGetPrices_QueryError(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rng := models.DateRange{Start: mustDay("2025-08-01"), End: mustDay("2025-08-03")}
	mock.ExpectQuery(selectRegex.String()).
		WithArgs("SBER", rng.Start, rng.End).
		WillReturnError(errors.New("connection refused"))

	if _, err := repo.GetPrices(context.Background(), "SBER", rng); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUpsertPrices_BatchTransaction(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	points := []models.PricePoint{
		{Date: mustDay("2025-08-01"), Price: 270.5},
		{Date: mustDay("2025-08-04"), Price: 271.0},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(upsertRegex.String())
	prep.ExpectExec().WithArgs("SBER", mustDay("2025-08-01"), 270.5).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("SBER", mustDay("2025-08-04"), 271.0).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := repo.UpsertPrices(context.Background(), "SBER", points); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Upserting the same point again must issue the same conflict-resolving
// statement, leaving the store state unchanged rather than duplicating rows.
func TestUpsertPrices_Idempotent(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	point := []models.PricePoint{{Date: mustDay("2025-08-01"), Price: 270.5}}

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(upsertRegex.String())
		prep.ExpectExec().WithArgs("SBER", mustDay("2025-08-01"), 270.5).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}

	for i := 0; i < 2; i++ {
		if err := repo.UpsertPrices(context.Background(), "SBER", point); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertPrices_RollbackOnFailure(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	points := []models.PricePoint{
		{Date: mustDay("2025-08-01"), Price: 270.5},
		{Date: mustDay("2025-08-02"), Price: 271.0},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(upsertRegex.String())
	prep.ExpectExec().WithArgs("SBER", mustDay("2025-08-01"), 270.5).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("SBER", mustDay("2025-08-02"), 271.0).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.UpsertPrices(context.Background(), "SBER", points); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertPrices_EmptyBatchIsNoop(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	if err := repo.UpsertPrices(context.Background(), "SBER", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No Begin/Exec expected at all
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected DB interaction: %v", err)
	}
}
