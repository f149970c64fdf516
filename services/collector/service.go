package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carpulse-backend/lib/collect"
	"carpulse-backend/lib/listing"
	"carpulse-backend/lib/timezone"
	"carpulse-backend/services/collector/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("services/collector")

// Unit is one source/query pair of a run, typically one make per source.
type Unit struct {
	Source collect.Source
	Query  collect.Query
}

func (u Unit) key() string {
	parts := []string{u.Source.ID()}
	if u.Query.Make != "" {
		parts = append(parts, u.Query.Make)
	}
	if u.Query.Model != "" {
		parts = append(parts, u.Query.Model)
	}
	return strings.Join(parts, "/")
}

type Options struct {
	Filter listing.FilterOptions
	// similarity threshold for cross-source grouping, zero for the default
	MergeThreshold float64
	// fetch detail pages for thin records when the source supports it
	EnrichDetails bool
	Enrich        collect.EnrichOptions
}

type RunResult struct {
	// one record per distinct vehicle, merged across sources
	Merged []listing.Record
	// records persisted per unit key ("source/make")
	UnitCounts map[string]int
	Errors     []error
}

type Service struct {
	db        *sql.DB
	qry       *db.Queries
	collector *collect.Collector
}

func NewService(database *sql.DB, collector *collect.Collector) Service {
	return Service{
		db:        database,
		qry:       db.New(database),
		collector: collector,
	}
}

// Run walks every unit, persists what each one yields, and merges the
// combined records across sources. A unit failing, partially or fully,
// never aborts its siblings; only context cancellation stops the run.
func (s Service) Run(ctx context.Context, units []Unit, opts Options) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.Int("units", len(units)))

	result := RunResult{UnitCounts: map[string]int{}}
	var all []listing.Record

	for _, unit := range units {
		startedAt := timezone.Now()

		collected, err := s.collector.Collect(ctx, unit.Source, unit.Query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		for _, cerr := range collected.Errors {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", unit.key(), cerr))
		}

		records := collected.Records
		if opts.EnrichDetails {
			if detail, ok := unit.Source.(collect.DetailSource); ok {
				for _, eerr := range s.collector.Enrich(ctx, detail, records, opts.Enrich) {
					result.Errors = append(result.Errors, fmt.Errorf("%s: %w", unit.key(), eerr))
				}
			}
		}
		records = listing.Filter(records, opts.Filter)

		err = s.persistUnit(ctx, unit, records, len(collected.Errors), startedAt)
		if err != nil {
			span.RecordError(err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: persist: %w", unit.key(), err))
			slog.ErrorContext(ctx, "failed to persist unit",
				"unit", unit.key(), "err", err)
			continue
		}

		result.UnitCounts[unit.key()] += len(records)
		all = append(all, records...)
		slog.InfoContext(ctx, "collected unit",
			"unit", unit.key(),
			"records", len(records),
			"errors", len(collected.Errors),
		)
	}

	result.Merged = listing.MergeAcrossSources(all, opts.MergeThreshold)
	span.SetAttributes(
		attribute.Int("records", len(all)),
		attribute.Int("merged", len(result.Merged)),
		attribute.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s Service) persistUnit(ctx context.Context, unit Unit, records []listing.Record, errCount int, startedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "persistUnit")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	collectedAt := timezone.Now().Unix()
	for _, record := range records {
		err := txqry.UpsertListing(ctx, toRow(record, collectedAt))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	err = txqry.CreateCollectionRun(ctx, db.CreateCollectionRunParams{
		Source:     unit.Source.ID(),
		Make:       unit.Query.Make,
		Model:      unit.Query.Model,
		Records:    int64(len(records)),
		Errors:     int64(errCount),
		StartedAt:  startedAt.Unix(),
		FinishedAt: timezone.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return tx.Commit()
}

// StoredBySource reads back what previous runs persisted for one source.
func (s Service) StoredBySource(ctx context.Context, source string) ([]listing.Record, error) {
	ctx, span := tracer.Start(ctx, "StoredBySource")
	defer span.End()

	rows, err := s.qry.ListListingsBySource(ctx, source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	records := make([]listing.Record, len(rows))
	for i, row := range rows {
		records[i] = fromRow(row)
	}
	return records, nil
}

// Runs lists past collection runs, newest first.
func (s Service) Runs(ctx context.Context) ([]db.CollectionRun, error) {
	return s.qry.ListCollectionRuns(ctx)
}

func toRow(r listing.Record, collectedAt int64) db.UpsertListingParams {
	endTime := int64(0)
	if !r.EndTime.IsZero() {
		endTime = r.EndTime.Unix()
	}
	return db.UpsertListingParams{
		Source:       r.SourceID,
		ID:           r.ID,
		Url:          r.URL,
		Title:        r.Title,
		Year:         int64(r.Vehicle.Year),
		Make:         r.Vehicle.Make,
		Model:        r.Vehicle.Model,
		Mileage:      r.Vehicle.Mileage,
		Transmission: string(r.Vehicle.Transmission),
		Color:        r.Vehicle.Color,
		PriceCents:   r.PriceCents,
		Currency:     r.Currency,
		Status:       string(r.Status),
		EndTime:      endTime,
		BidCount:     int64(r.BidCount),
		WatcherCount: int64(r.WatcherCount),
		CommentCount: int64(r.CommentCount),
		CollectedAt:  collectedAt,
	}
}

func fromRow(l db.Listing) listing.Record {
	record := listing.Record{
		ID:       l.ID,
		SourceID: l.Source,
		URL:      l.Url,
		Title:    l.Title,
		Vehicle: listing.Vehicle{
			Year:         int(l.Year),
			Make:         l.Make,
			Model:        l.Model,
			Mileage:      l.Mileage,
			Transmission: listing.Transmission(l.Transmission),
			Color:        l.Color,
		},
		PriceCents:   l.PriceCents,
		Currency:     l.Currency,
		Status:       listing.BiddingStatus(l.Status),
		BidCount:     int(l.BidCount),
		WatcherCount: int(l.WatcherCount),
		CommentCount: int(l.CommentCount),
	}
	if l.EndTime != 0 {
		record.EndTime = time.Unix(l.EndTime, 0).In(timezone.Location)
	}
	return record
}
