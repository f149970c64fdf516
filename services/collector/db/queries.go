package db

import "context"

const upsertListing = `
INSERT INTO listings (
    source, id, url, title, year, make, model, mileage, transmission,
    color, price_cents, currency, status, end_time, bid_count,
    watcher_count, comment_count, collected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source, id) DO UPDATE SET
    url = excluded.url,
    title = excluded.title,
    year = excluded.year,
    make = excluded.make,
    model = excluded.model,
    mileage = excluded.mileage,
    transmission = excluded.transmission,
    color = excluded.color,
    price_cents = excluded.price_cents,
    currency = excluded.currency,
    status = excluded.status,
    end_time = excluded.end_time,
    bid_count = excluded.bid_count,
    watcher_count = excluded.watcher_count,
    comment_count = excluded.comment_count,
    collected_at = excluded.collected_at
`

type UpsertListingParams struct {
	Source       string
	ID           string
	Url          string
	Title        string
	Year         int64
	Make         string
	Model        string
	Mileage      int64
	Transmission string
	Color        string
	PriceCents   int64
	Currency     string
	Status       string
	EndTime      int64
	BidCount     int64
	WatcherCount int64
	CommentCount int64
	CollectedAt  int64
}

func (q *Queries) UpsertListing(ctx context.Context, arg UpsertListingParams) error {
	_, err := q.db.ExecContext(ctx, upsertListing,
		arg.Source,
		arg.ID,
		arg.Url,
		arg.Title,
		arg.Year,
		arg.Make,
		arg.Model,
		arg.Mileage,
		arg.Transmission,
		arg.Color,
		arg.PriceCents,
		arg.Currency,
		arg.Status,
		arg.EndTime,
		arg.BidCount,
		arg.WatcherCount,
		arg.CommentCount,
		arg.CollectedAt,
	)
	return err
}

const getListing = `
SELECT source, id, url, title, year, make, model, mileage, transmission,
    color, price_cents, currency, status, end_time, bid_count,
    watcher_count, comment_count, collected_at
FROM listings WHERE source = ? AND id = ?
`

type GetListingParams struct {
	Source string
	ID     string
}

func (q *Queries) GetListing(ctx context.Context, arg GetListingParams) (Listing, error) {
	row := q.db.QueryRowContext(ctx, getListing, arg.Source, arg.ID)
	var l Listing
	err := row.Scan(
		&l.Source,
		&l.ID,
		&l.Url,
		&l.Title,
		&l.Year,
		&l.Make,
		&l.Model,
		&l.Mileage,
		&l.Transmission,
		&l.Color,
		&l.PriceCents,
		&l.Currency,
		&l.Status,
		&l.EndTime,
		&l.BidCount,
		&l.WatcherCount,
		&l.CommentCount,
		&l.CollectedAt,
	)
	return l, err
}

const listListingsBySource = `
SELECT source, id, url, title, year, make, model, mileage, transmission,
    color, price_cents, currency, status, end_time, bid_count,
    watcher_count, comment_count, collected_at
FROM listings WHERE source = ? ORDER BY id
`

func (q *Queries) ListListingsBySource(ctx context.Context, source string) ([]Listing, error) {
	rows, err := q.db.QueryContext(ctx, listListingsBySource, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		err := rows.Scan(
			&l.Source,
			&l.ID,
			&l.Url,
			&l.Title,
			&l.Year,
			&l.Make,
			&l.Model,
			&l.Mileage,
			&l.Transmission,
			&l.Color,
			&l.PriceCents,
			&l.Currency,
			&l.Status,
			&l.EndTime,
			&l.BidCount,
			&l.WatcherCount,
			&l.CommentCount,
			&l.CollectedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const countListings = `SELECT COUNT(*) FROM listings`

func (q *Queries) CountListings(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countListings)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createCollectionRun = `
INSERT INTO collection_runs (source, make, model, records, errors, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateCollectionRunParams struct {
	Source     string
	Make       string
	Model      string
	Records    int64
	Errors     int64
	StartedAt  int64
	FinishedAt int64
}

func (q *Queries) CreateCollectionRun(ctx context.Context, arg CreateCollectionRunParams) error {
	_, err := q.db.ExecContext(ctx, createCollectionRun,
		arg.Source,
		arg.Make,
		arg.Model,
		arg.Records,
		arg.Errors,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const listCollectionRuns = `
SELECT id, source, make, model, records, errors, started_at, finished_at
FROM collection_runs ORDER BY id DESC
`

func (q *Queries) ListCollectionRuns(ctx context.Context) ([]CollectionRun, error) {
	rows, err := q.db.QueryContext(ctx, listCollectionRuns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionRun
	for rows.Next() {
		var r CollectionRun
		err := rows.Scan(
			&r.ID,
			&r.Source,
			&r.Make,
			&r.Model,
			&r.Records,
			&r.Errors,
			&r.StartedAt,
			&r.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
