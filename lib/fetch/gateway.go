package fetch

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("carpulse.lib.fetch")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// fixed-window budget; zero disables the window counter
	RequestsPerMinute int
	// minimum gap between two outgoing requests
	MinInterval time.Duration
	// retries after the first attempt, so MaxRetries=2 means 3 attempts total
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMultiplier float64
	// extended pause taken on HTTP 429 before re-running the same unit of work
	ThrottlePause time.Duration
	// 429 re-attempts do not consume the normal retry budget but are
	// still bounded by this cap
	MaxThrottleRetries int
	CacheTTL           time.Duration
	Timeout            time.Duration
	UserAgent          string
}

func (o Options) withDefaults() Options {
	if o.RetryBaseDelay == 0 {
		o.RetryBaseDelay = time.Second
	}
	if o.RetryMultiplier == 0 {
		o.RetryMultiplier = 2
	}
	if o.ThrottlePause == 0 {
		o.ThrottlePause = time.Second * 30
	}
	if o.MaxThrottleRetries == 0 {
		o.MaxThrottleRetries = 3
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = time.Minute * 10
	}
	if o.Timeout == 0 {
		o.Timeout = time.Second * 30
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

type Request struct {
	// defaults to GET
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

type Response struct {
	Status    int
	Body      []byte
	Header    http.Header
	FromCache bool
}

// Gateway is a polite single-request accessor: cached responses short-circuit
// everything, uncached ones pass through rate limiting and a bounded retry
// loop. One instance owns its rate state and cache exclusively.
type Gateway struct {
	client *resty.Client
	opts   Options

	// rateMu serializes the pause-then-record sequence so concurrent
	// callers, e.g. detail enrichment batches, space their requests the
	// same way sequential ones do
	rateMu sync.Mutex
	rate   rateState
	cache  *responseCache

	// swapped out by tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGateway(opts Options) *Gateway {
	opts = opts.withDefaults()

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)

	return &Gateway{
		client: client,
		opts:   opts,
		cache:  newResponseCache(),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// InstrumentHTTP attaches resty tracing hooks, see lib/telemetry.
func (g *Gateway) InstrumentHTTP(instrument func(*resty.Client)) {
	instrument(g.client)
}

// ThrottlePause is exposed so the collector can take the same extended pause
// when a whole page needs re-attempting after throttling.
func (g *Gateway) ThrottlePause() time.Duration {
	return g.opts.ThrottlePause
}

func (g *Gateway) Fetch(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	span.SetAttributes(
		attribute.String("method", method),
		attribute.String("url", req.URL),
	)

	key := Fingerprint(method, req.URL, req.Headers, req.Body)
	if entry, ok := g.cache.get(key, g.now()); ok {
		span.AddEvent("cache hit")
		return &Response{
			Status:    entry.status,
			Body:      entry.body,
			Header:    entry.header,
			FromCache: true,
		}, nil
	}

	var lastErr error
	throttleRetries := 0

	for attempt := 0; attempt <= g.opts.MaxRetries; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g.rateMu.Lock()
		if delay := g.rate.delayUntilAllowed(g.now(), g.opts.RequestsPerMinute, g.opts.MinInterval); delay > 0 {
			slog.DebugContext(ctx, "rate limit pause", "url", req.URL, "delay", delay)
			if err := g.sleep(ctx, delay); err != nil {
				g.rateMu.Unlock()
				return nil, err
			}
		}
		g.rate.recordRequest(g.now())
		g.rateMu.Unlock()
		res, err := g.send(ctx, method, req)
		if err == nil {
			g.cache.set(key, cacheEntry{
				body:   res.Body,
				status: res.Status,
				header: res.Header,
				expiry: g.now().Add(g.opts.CacheTTL),
			})
			return res, nil
		}

		status := 0
		if serr, ok := err.(statusError); ok {
			status = serr.status
		}

		switch {
		case status == http.StatusTooManyRequests:
			throttleRetries++
			if throttleRetries > g.opts.MaxThrottleRetries {
				span.SetStatus(codes.Error, "throttle retries exhausted")
				return nil, &TransientFetchError{
					URL:       req.URL,
					Attempts:  attempt + throttleRetries,
					Throttled: true,
					Cause:     err,
				}
			}
			slog.WarnContext(ctx, "throttled, taking extended pause",
				"url", req.URL,
				"pause", g.opts.ThrottlePause,
				"throttle_retries", throttleRetries,
			)
			// an extended pause, then the same unit of work again; this
			// does not consume the normal retry budget
			if err := g.sleep(ctx, g.opts.ThrottlePause); err != nil {
				return nil, err
			}
			continue

		case status >= 400 && status < 500:
			span.SetStatus(codes.Error, "permanent rejection")
			return nil, &PermanentFetchError{URL: req.URL, Status: status}

		default:
			lastErr = err
			attempt++
			if attempt > g.opts.MaxRetries {
				span.RecordError(lastErr)
				span.SetStatus(codes.Error, "retries exhausted")
				return nil, &TransientFetchError{
					URL:      req.URL,
					Attempts: attempt,
					Cause:    lastErr,
				}
			}
			backoff := time.Duration(float64(g.opts.RetryBaseDelay) * math.Pow(g.opts.RetryMultiplier, float64(attempt-1)))
			slog.WarnContext(ctx, "request failed, backing off",
				"url", req.URL,
				"attempt", attempt,
				"backoff", backoff,
				"err", err,
			)
			if err := g.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	// only reachable with a negative retry budget
	span.SetStatus(codes.Error, "no attempts were made")
	return nil, &TransientFetchError{URL: req.URL, Cause: lastErr}
}

func (g *Gateway) send(ctx context.Context, method string, req Request) (*Response, error) {
	r := g.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	res, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, statusError{status: res.StatusCode()}
	}

	return &Response{
		Status: res.StatusCode(),
		Body:   res.Body(),
		Header: res.Header(),
	}, nil
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
