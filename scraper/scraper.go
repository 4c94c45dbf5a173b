package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/astrokml/config"
	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/parser"
	"github.com/aluiziolira/astrokml/pipeline"
)

// Scraper ties the search session, the pager and the detail fetcher
// together for one run against the catalog.
type Scraper struct {
	cfg     *config.Config
	session *Session
	pager   *Pager
	details *DetailFetcher
	Metrics *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()

	session, err := NewSession(cfg, metrics)
	if err != nil {
		return nil, err
	}
	details, err := NewDetailFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:     cfg,
		session: session,
		pager:   NewPager(session, cfg.MaxPages, metrics),
		details: details,
		Metrics: metrics,
	}, nil
}

// WithTransport routes every request through rt, mainly for tests.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.session.WithTransport(rt)
	s.details.WithTransport(rt)
}

// Details returns the attribute source for the metadata pipeline.
func (s *Scraper) Details() *DetailFetcher {
	return s.details
}

// Run collects the records matching criteria, keeps those inside
// boundary (all of them when boundary is nil) and streams their
// attribute sets through p.
func (s *Scraper) Run(ctx context.Context, criteria SearchCriteria, boundary geometry.Boundary, p *pipeline.Pipeline) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.RunResult{
		StartTime:   time.Now(),
		RowsDropped: make(map[string]int),
	}
	defer func() {
		result.EndTime = time.Now()
		result.RequestCount = s.session.RequestCount() + s.details.RequestCount()
		result.RetryCount = s.session.RetryCount() + s.details.RetryCount()
	}()

	slog.Info("searching catalog", slog.String("criteria", criteria.String()))
	pages, err := s.pager.Collect(ctx, criteria, boundary)
	if pages != nil {
		result.Records = pages.Records
		result.PageCount = pages.PagesProcessed
		result.PagesSkipped = pages.PagesSkipped
		result.RowsSeen = pages.RowsSeen
		for outcome, n := range pages.Outcomes {
			if outcome != parser.RowIncluded {
				result.RowsDropped[outcome] += n
			}
		}
	}
	if err != nil {
		return result, fmt.Errorf("collect records: %w", err)
	}

	slog.Info("records found",
		slog.Int("records", len(result.Records)),
		slog.Int("pages", pages.PageCount),
	)

	stats, err := p.Run(ctx, result.Records)
	result.RecordsWritten = stats.Written
	result.FailedRecords = stats.Failed
	s.Metrics.AddWritten(stats.Written)
	for reason, n := range stats.Dropped {
		s.Metrics.AddDropped(reason, n)
	}
	if err != nil {
		return result, fmt.Errorf("write records: %w", err)
	}
	return result, nil
}
