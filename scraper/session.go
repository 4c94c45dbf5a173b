package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/astrokml/config"
	"github.com/gocolly/colly/v2"
)

// Form names on the catalog pages.
const (
	SearchFormName = "sqlform"
	GotoFormName   = "GoToPage"
)

// Request phases used for logging and metrics labels.
const (
	phaseSearchForm = "search_form"
	phaseSearch     = "search"
	phaseGotoPage   = "goto_page"
	phaseDetail     = "detail"
)

// ErrFormNotFound is returned when a page lacks the expected HTML form.
var ErrFormNotFound = errors.New("form not found")

// Session is a stateful browsing session against the catalog search
// script. Requests are issued one at a time through a synchronous colly
// collector, which also keeps the cookie jar.
type Session struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics

	mu         sync.Mutex
	last       *colly.Response
	lastStatus int
	searchForm *htmlForm
	results    *colly.Response

	requestCount int64
	retryCount   int64
}

// NewSession builds a session configured from cfg.
func NewSession(cfg *config.Config, metrics *Metrics) (*Session, error) {
	parsed, err := url.Parse(cfg.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("search url must include a host")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if cfg.Delay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       cfg.Delay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limits: %w", err)
		}
	}

	s := &Session{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
	}
	s.configureHandlers()
	return s, nil
}

// WithTransport swaps the HTTP transport, mainly for tests.
func (s *Session) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

func (s *Session) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&s.requestCount, 1)
	})

	s.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.metrics.ObserveDuration(time.Since(start))
		}
		s.mu.Lock()
		s.last = r
		s.lastStatus = r.StatusCode
		s.mu.Unlock()
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		s.mu.Lock()
		s.lastStatus = status
		s.mu.Unlock()
	})
}

// OpenSearchForm loads the search page and captures its form defaults.
func (s *Session) OpenSearchForm(ctx context.Context) error {
	resp, err := s.do(ctx, phaseSearchForm, s.cfg.SearchURL, func() error {
		return s.collector.Visit(s.cfg.SearchURL)
	})
	if err != nil {
		return err
	}
	form, err := parseForm(resp.Body, resp.Request.URL, SearchFormName)
	if err != nil {
		return FetchError{Stage: phaseSearchForm, URL: s.cfg.SearchURL, Err: err}
	}

	s.mu.Lock()
	s.searchForm = form
	s.mu.Unlock()
	return nil
}

// SubmitSearch fills the search form from criteria and returns the first
// results page.
func (s *Session) SubmitSearch(ctx context.Context, criteria SearchCriteria) ([]byte, error) {
	s.mu.Lock()
	form := s.searchForm
	s.mu.Unlock()
	if form == nil {
		if err := s.OpenSearchForm(ctx); err != nil {
			return nil, err
		}
		s.mu.Lock()
		form = s.searchForm
		s.mu.Unlock()
	}

	values := cloneValues(form.values)
	criteria.apply(values)
	values.Set(fieldImageSize, "any")

	slog.Debug("submitting search", slog.String("criteria", criteria.String()))
	resp, err := s.submit(ctx, phaseSearch, form, values)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GotoPage submits the current results page's pagination form.
func (s *Session) GotoPage(ctx context.Context, page int) ([]byte, error) {
	s.mu.Lock()
	current := s.results
	s.mu.Unlock()
	if current == nil {
		return nil, FetchError{Stage: phaseGotoPage, Err: errors.New("no search submitted")}
	}

	form, err := parseForm(current.Body, current.Request.URL, GotoFormName)
	if err != nil {
		return nil, FetchError{Stage: phaseGotoPage, URL: current.Request.URL.String(), Err: err}
	}
	values := cloneValues(form.values)
	values.Set(fieldPage, strconv.Itoa(page))

	resp, err := s.submit(ctx, phaseGotoPage, form, values)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// RequestCount returns the number of requests issued so far.
func (s *Session) RequestCount() int {
	return int(atomic.LoadInt64(&s.requestCount))
}

// RetryCount returns the number of retries scheduled so far.
func (s *Session) RetryCount() int {
	return int(atomic.LoadInt64(&s.retryCount))
}

func (s *Session) submit(ctx context.Context, phase string, form *htmlForm, values url.Values) (*colly.Response, error) {
	target := form.action.String()
	resp, err := s.do(ctx, phase, target, func() error {
		if form.method == http.MethodPost {
			return s.collector.PostRaw(target, []byte(values.Encode()))
		}
		u := *form.action
		u.RawQuery = values.Encode()
		return s.collector.Visit(u.String())
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.results = resp
	s.mu.Unlock()
	return resp, nil
}

// do issues one request through fn, retrying transient failures with
// exponential backoff.
func (s *Session) do(ctx context.Context, phase, target string, fn func() error) (*colly.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, FetchError{Stage: phase, URL: target, Err: err}
		}

		s.mu.Lock()
		s.last = nil
		s.lastStatus = 0
		s.mu.Unlock()

		s.metrics.IncRequest(phase)
		err := fn()

		s.mu.Lock()
		resp, status := s.last, s.lastStatus
		s.mu.Unlock()

		if err == nil && resp != nil {
			return resp, nil
		}
		if err == nil {
			err = errors.New("empty response")
		}

		classified := classifyError(err, status)
		category := errorTypeLabel(classified)
		s.metrics.IncError(category)
		slog.Error("request error",
			slog.String("phase", phase),
			slog.String("url", target),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if attempt >= s.cfg.MaxRetries || !retryable(classified) {
			return nil, FetchError{Stage: phase, URL: target, Err: classified}
		}

		atomic.AddInt64(&s.retryCount, 1)
		s.metrics.IncRetries()
		delay := backoff(s.cfg, attempt+1)
		slog.Warn("retrying request",
			slog.String("phase", phase),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, FetchError{Stage: phase, URL: target, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

func backoff(cfg *config.Config, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// htmlForm holds the submission target and default values of a form.
type htmlForm struct {
	action *url.URL
	method string
	values url.Values
}

// parseForm reads the named form the way a browser would submit it
// untouched: checked boxes, selected options and the first submit button.
func parseForm(body []byte, base *url.URL, name string) (*htmlForm, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	sel := doc.Find(fmt.Sprintf("form[name=%q]", name)).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, name)
	}

	action := base
	if raw, ok := sel.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parse form action %q: %w", raw, err)
		}
		action = base.ResolveReference(ref)
	}
	method := strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", http.MethodGet)))
	if method != http.MethodPost {
		method = http.MethodGet
	}

	values := url.Values{}
	submitted := false
	sel.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		fieldName, ok := field.Attr("name")
		if !ok || fieldName == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "select":
			addSelected(values, fieldName, field)
		case "textarea":
			values.Add(fieldName, field.Text())
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); checked {
					values.Add(fieldName, field.AttrOr("value", "on"))
				}
			case "submit", "image":
				if !submitted {
					submitted = true
					values.Add(fieldName, field.AttrOr("value", ""))
				}
			case "reset", "button", "file":
			default:
				values.Add(fieldName, field.AttrOr("value", ""))
			}
		}
	})

	return &htmlForm{action: action, method: method, values: values}, nil
}

func addSelected(values url.Values, name string, field *goquery.Selection) {
	options := field.Find("option")
	selected := options.FilterFunction(func(_ int, o *goquery.Selection) bool {
		_, ok := o.Attr("selected")
		return ok
	})
	if selected.Length() == 0 {
		if _, multiple := field.Attr("multiple"); multiple || options.Length() == 0 {
			return
		}
		selected = options.First()
	}
	selected.Each(func(_ int, o *goquery.Selection) {
		value, ok := o.Attr("value")
		if !ok {
			value = strings.TrimSpace(o.Text())
		}
		values.Add(name, value)
	})
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
