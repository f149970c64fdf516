package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/listing"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("carpulse.lib.collect")

// Query describes one collection unit against a source.
type Query struct {
	Make  string
	Model string
	// requested page ceiling, clamped by source-reported metadata
	MaxPages int
	// requested page size; zero keeps the source's default
	PerPage int
}

// PageMeta is what a source reports about its own pagination on page 1.
// Zero values mean the source did not report it.
type PageMeta struct {
	TotalPages int
	TotalItems int
}

type Page struct {
	Items []listing.RawItem
	Meta  PageMeta
}

// Source adapts one site/API to the collector. Implementations are pure
// request builders and parsers; all politeness lives in the collector and
// the gateway.
type Source interface {
	ID() string
	BuildQuery(query Query, page int) fetch.Request
	ParsePage(ctx context.Context, body []byte) (Page, error)
}

// ModelSuggester is optionally implemented by sources that can enumerate
// model names for a make, sharpening title parsing.
type ModelSuggester interface {
	ModelSuggestions(query Query) []string
}

type Options struct {
	// fallback page ceiling when the query does not set one
	MaxPages int
	// base delay between page requests
	PageDelay time.Duration
	// uniform random addition on top of PageDelay
	PageJitter time.Duration
	// take LongPause after every LongPauseEvery pages
	LongPauseEvery int
	LongPause      time.Duration
	// cap on re-attempts of a single page index after the gateway
	// reports throttling
	MaxPageRetries int
}

func (o Options) withDefaults() Options {
	if o.MaxPages == 0 {
		o.MaxPages = 5
	}
	if o.PageDelay == 0 {
		o.PageDelay = time.Second * 2
	}
	if o.PageJitter == 0 {
		o.PageJitter = time.Second
	}
	if o.LongPauseEvery == 0 {
		o.LongPauseEvery = 10
	}
	if o.LongPause == 0 {
		o.LongPause = time.Second * 15
	}
	if o.MaxPageRetries == 0 {
		o.MaxPageRetries = 2
	}
	return o
}

type Result struct {
	Records []listing.Record
	// per-page failures; the run itself still succeeds
	Errors []error
	// pages actually fetched, throttle re-attempts not counted
	Pages int
}

// Collector walks a paginated source through a fetch gateway,
// deduplicating by first-seen item id within the run.
type Collector struct {
	gateway *fetch.Gateway
	opts    Options

	// swapped out by tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewCollector(gateway *fetch.Gateway, opts Options) *Collector {
	return &Collector{
		gateway: gateway,
		opts:    opts.withDefaults(),
		sleep:   sleepContext,
	}
}

// Collect walks pages 1..maxPages of the source. A page that fails to
// fetch or parse is recorded and skipped; the walk stops early once a
// page contributes zero unseen items. Only context cancellation aborts
// the run.
func (c *Collector) Collect(ctx context.Context, source Source, query Query) (Result, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source.ID()),
		attribute.String("make", query.Make),
		attribute.String("model", query.Model),
	)

	maxPages := query.MaxPages
	if maxPages <= 0 {
		maxPages = c.opts.MaxPages
	}

	assembleOpts := listing.AssembleOptions{
		SourceID: source.ID(),
		HintMake: query.Make,
	}
	if suggester, ok := source.(ModelSuggester); ok {
		assembleOpts.ModelSuggestions = suggester.ModelSuggestions(query)
	}

	var result Result
	seen := make(map[string]bool)
	pageRetries := 0

	for page := 1; page <= maxPages; {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := c.gateway.Fetch(ctx, source.BuildQuery(query, page))
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			// the gateway already took its own throttle pauses; one
			// more bounded round of whole-page re-attempts on top
			if fetch.IsThrottled(err) && pageRetries < c.opts.MaxPageRetries {
				pageRetries++
				slog.WarnContext(ctx, "page throttled, re-attempting",
					"source", source.ID(),
					"page", page,
					"page_retries", pageRetries,
				)
				if err := c.sleep(ctx, c.gateway.ThrottlePause()); err != nil {
					return result, err
				}
				continue
			}
			span.RecordError(err)
			result.Errors = append(result.Errors, fmt.Errorf("page %d: %w", page, err))
			slog.ErrorContext(ctx, "page fetch failed, skipping",
				"source", source.ID(), "page", page, "err", err)
			pageRetries = 0
			page++
			// failed pages are paced like successful ones
			if page <= maxPages {
				if err := c.sleep(ctx, c.pageDelay(page)); err != nil {
					return result, err
				}
			}
			continue
		}

		result.Pages++
		pageRetries = 0

		parsed, err := source.ParsePage(ctx, res.Body)
		if err != nil {
			span.RecordError(err)
			result.Errors = append(result.Errors, fmt.Errorf("page %d: %w", page, err))
			slog.ErrorContext(ctx, "page parse failed, skipping",
				"source", source.ID(), "page", page, "err", err)
			page++
			if page <= maxPages {
				if err := c.sleep(ctx, c.pageDelay(page)); err != nil {
					return result, err
				}
			}
			continue
		}

		if page == 1 && parsed.Meta.TotalPages > 0 && parsed.Meta.TotalPages < maxPages {
			maxPages = parsed.Meta.TotalPages
		}

		newItems := 0
		for _, raw := range parsed.Items {
			if raw.ID == "" || seen[raw.ID] {
				continue
			}
			seen[raw.ID] = true
			newItems++
			result.Records = append(result.Records, listing.Assemble(raw, assembleOpts))
		}
		slog.DebugContext(ctx, "collected page",
			"source", source.ID(),
			"page", page,
			"items", len(parsed.Items),
			"new_items", newItems,
		)

		// an all-duplicate page means we walked past the end
		if newItems == 0 {
			span.AddEvent("source exhausted")
			break
		}

		page++
		if page > maxPages {
			break
		}
		if err := c.sleep(ctx, c.pageDelay(page)); err != nil {
			return result, err
		}
	}

	if len(result.Records) == 0 && len(result.Errors) > 0 {
		span.SetStatus(codes.Error, "every page failed")
	}
	span.SetAttributes(
		attribute.Int("pages", result.Pages),
		attribute.Int("records", len(result.Records)),
		attribute.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (c *Collector) pageDelay(nextPage int) time.Duration {
	delay := c.opts.PageDelay
	if c.opts.PageJitter > 0 {
		jitter, err := random.IntRange(0, int(c.opts.PageJitter.Milliseconds())+1)
		if err == nil {
			delay += time.Duration(jitter) * time.Millisecond
		}
	}
	if c.opts.LongPauseEvery > 0 && (nextPage-1)%c.opts.LongPauseEvery == 0 {
		delay += c.opts.LongPause
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
