package collect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"carpulse-backend/lib/extract"
	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/listing"
)

// Detail is the parsed payload of one listing detail page.
type Detail struct {
	Essentials string
	Document   string
	Images     []string

	BidCount     int
	WatcherCount int
	CommentCount int
}

// DetailSource is optionally implemented by sources whose index pages are
// too thin, so records need a per-listing detail fetch.
type DetailSource interface {
	DetailRequest(record listing.Record) fetch.Request
	ParseDetail(ctx context.Context, body []byte) (Detail, error)
}

type EnrichOptions struct {
	// detail pages fetched concurrently per batch
	BatchSize int
	// pause between batches
	BatchDelay time.Duration
}

func (o EnrichOptions) withDefaults() EnrichOptions {
	if o.BatchSize == 0 {
		o.BatchSize = 5
	}
	if o.BatchDelay == 0 {
		o.BatchDelay = time.Second * 3
	}
	return o
}

// Enrich fetches detail pages for records missing vehicle attributes and
// fills them in place, batch by batch. Per-record failures are returned
// but never stop the remaining batches.
func (c *Collector) Enrich(ctx context.Context, source DetailSource, records []listing.Record, opts EnrichOptions) []error {
	ctx, span := tracer.Start(ctx, "Enrich")
	defer span.End()
	opts = opts.withDefaults()

	var pending []int
	for i, r := range records {
		if r.URL == "" {
			continue
		}
		if r.Vehicle.Mileage == 0 ||
			r.Vehicle.Transmission == listing.TransmissionUnknown ||
			r.Vehicle.Color == "" {
			pending = append(pending, i)
		}
	}

	var mu sync.Mutex
	var errs []error

	for start := 0; start < len(pending); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}

		end := start + opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}

		wg := sync.WaitGroup{}
		for _, idx := range pending[start:end] {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				if err := c.enrichOne(ctx, source, &records[idx]); err != nil {
					slog.WarnContext(ctx, "detail enrichment failed",
						"url", records[idx].URL, "err", err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}(idx)
		}
		wg.Wait()

		if end < len(pending) {
			if err := c.sleep(ctx, opts.BatchDelay); err != nil {
				break
			}
		}
	}

	return errs
}

func (c *Collector) enrichOne(ctx context.Context, source DetailSource, record *listing.Record) error {
	res, err := c.gateway.Fetch(ctx, source.DetailRequest(*record))
	if err != nil {
		return err
	}
	detail, err := source.ParseDetail(ctx, res.Body)
	if err != nil {
		return err
	}

	if record.Vehicle.Mileage == 0 {
		if miles, ok := extract.ExtractMileageDoc(detail.Essentials, detail.Document); ok {
			record.Vehicle.Mileage = miles
		}
	}
	if record.Vehicle.Transmission == listing.TransmissionUnknown {
		facts := detail.Essentials
		if facts == "" {
			facts = detail.Document
		}
		record.Vehicle.Transmission = listing.Transmission(extract.DetectTransmission(facts))
	}
	if record.Vehicle.Color == "" {
		if color, ok := extract.NormalizeColor(detail.Essentials); ok {
			record.Vehicle.Color = color
		}
	}
	if len(detail.Images) > 0 {
		record.Images = detail.Images
	}
	if detail.BidCount > 0 {
		record.BidCount = detail.BidCount
	}
	if detail.WatcherCount > 0 {
		record.WatcherCount = detail.WatcherCount
	}
	if detail.CommentCount > 0 {
		record.CommentCount = detail.CommentCount
	}
	return nil
}
