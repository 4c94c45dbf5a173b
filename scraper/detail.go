package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/aluiziolira/astrokml/config"
	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/parser"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DetailFetcher retrieves and parses the placemark document of a record.
// It is safe for concurrent use.
type DetailFetcher struct {
	cfg     *config.Config
	client  *resty.Client
	limiter *rate.Limiter
	cache   *lru.Cache[string, models.AttributeSet]
	metrics *Metrics

	requestCount int64
	retryCount   int64
}

// NewDetailFetcher builds a fetcher configured from cfg.
func NewDetailFetcher(cfg *config.Config, metrics *Metrics) (*DetailFetcher, error) {
	if _, err := url.Parse(cfg.DetailURL); err != nil {
		return nil, fmt.Errorf("parse detail url: %w", err)
	}

	d := &DetailFetcher{
		cfg:     cfg,
		limiter: newLimiter(cfg.RequestsPerSecond),
		metrics: metrics,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, models.AttributeSet](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create detail cache: %w", err)
		}
		d.cache = cache
	}

	d.client = resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryBackoff).
		SetRetryMaxWaitTime(cfg.RetryBackoffMax).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			// Runs once per attempt, so retries are paced too.
			if err := d.limiter.Wait(r.Context()); err != nil {
				return err
			}
			atomic.AddInt64(&d.requestCount, 1)
			d.metrics.IncRequest(phaseDetail)
			return nil
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return retryable(classifyError(err, 0))
			}
			return retryable(classifyError(nil, r.StatusCode()))
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			atomic.AddInt64(&d.retryCount, 1)
			d.metrics.IncRetries()
		})
	return d, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// WithTransport swaps the HTTP transport, mainly for tests.
func (d *DetailFetcher) WithTransport(rt http.RoundTripper) {
	d.client.SetTransport(rt)
}

// DocumentURL returns the placemark document address of rec.
func (d *DetailFetcher) DocumentURL(rec models.Record) string {
	u, err := url.Parse(d.cfg.DetailURL)
	if err != nil {
		return d.cfg.DetailURL + "?photo=" + url.QueryEscape(rec.Key())
	}
	q := u.Query()
	q.Set("photo", rec.Key())
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchDocument downloads target and splits it into lines.
func (d *DetailFetcher) FetchDocument(ctx context.Context, target string) ([]string, error) {
	resp, err := d.client.R().SetContext(ctx).Get(target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		classified := classifyError(err, 0)
		d.metrics.IncError(errorTypeLabel(classified))
		return nil, FetchError{Stage: phaseDetail, URL: target, Err: classified}
	}
	d.metrics.ObserveDuration(resp.Time())
	if resp.IsError() {
		classified := classifyError(nil, resp.StatusCode())
		d.metrics.IncError(errorTypeLabel(classified))
		return nil, FetchError{Stage: phaseDetail, URL: target, Err: classified}
	}
	return parser.SplitLines(resp.String()), nil
}

// Attributes returns the attribute set of rec, from cache when possible.
func (d *DetailFetcher) Attributes(ctx context.Context, rec models.Record) (models.AttributeSet, error) {
	key := rec.Key()
	if d.cache != nil {
		if attrs, ok := d.cache.Get(key); ok {
			d.metrics.IncCacheHit()
			return attrs, nil
		}
	}

	target := d.DocumentURL(rec)
	lines, err := d.FetchDocument(ctx, target)
	if err != nil {
		return models.AttributeSet{}, err
	}

	attrs, missing, err := parser.ParsePlacemark(lines)
	if err != nil {
		var metaErr parser.MetadataParseError
		if errors.As(err, &metaErr) {
			metaErr.Key = key
			metaErr.URL = target
			return models.AttributeSet{}, metaErr
		}
		if errors.Is(err, parser.ErrNotPlacemark) {
			return models.AttributeSet{}, fmt.Errorf("%s (%s): %w", key, target, err)
		}
		return models.AttributeSet{}, err
	}
	if len(missing) > 0 {
		slog.Warn("placemark attributes missing",
			slog.String("key", key),
			slog.String("url", target),
			slog.String("attributes", strings.Join(missing, ", ")),
		)
	}

	if d.cache != nil {
		d.cache.Add(key, attrs)
	}
	return attrs, nil
}

// RequestCount returns the number of detail requests issued so far.
func (d *DetailFetcher) RequestCount() int {
	return int(atomic.LoadInt64(&d.requestCount))
}

// RetryCount returns the number of detail retries so far.
func (d *DetailFetcher) RetryCount() int {
	return int(atomic.LoadInt64(&d.retryCount))
}
