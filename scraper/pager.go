package scraper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/parser"
)

// SearchSession is the part of Session the pager drives.
type SearchSession interface {
	SubmitSearch(ctx context.Context, criteria SearchCriteria) ([]byte, error)
	GotoPage(ctx context.Context, page int) ([]byte, error)
}

// Page outcomes used for logging and metrics labels.
const (
	pageProcessed = "processed"
	pageSkipped   = "skipped"
)

// PagerResult summarises one walk over the result pages.
type PagerResult struct {
	Records        []models.Record
	PageCount      int
	PagesProcessed int
	PagesSkipped   int
	RowsSeen       int
	Outcomes       map[string]int
}

// Pager walks every result page of a search in order and collects the
// records that pass the boundary.
type Pager struct {
	session  SearchSession
	maxPages int
	metrics  *Metrics
}

// NewPager returns a pager over session. maxPages of zero walks every page.
func NewPager(session SearchSession, maxPages int, metrics *Metrics) *Pager {
	return &Pager{session: session, maxPages: maxPages, metrics: metrics}
}

// Collect submits the search and extracts records page by page. A nil
// boundary keeps every row.
func (p *Pager) Collect(ctx context.Context, criteria SearchCriteria, boundary geometry.Boundary) (*PagerResult, error) {
	body, err := p.session.SubmitSearch(ctx, criteria)
	if err != nil {
		return nil, asFetchError(phaseSearch, err)
	}

	total, err := parser.PageTotal(string(body))
	if err != nil {
		return nil, err
	}

	limit := total
	if p.maxPages > 0 && p.maxPages < total {
		limit = p.maxPages
		slog.Info("page limit applied",
			slog.Int("pages", total),
			slog.Int("limit", limit),
		)
	}

	result := &PagerResult{
		PageCount: total,
		Outcomes:  make(map[string]int),
	}
	for page := 1; page <= limit; page++ {
		if page > 1 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			body, err = p.session.GotoPage(ctx, page)
			if err != nil {
				return result, asFetchError(phaseGotoPage, err)
			}
		}

		slog.Info("processing results page",
			slog.Int("page", page),
			slog.Int("of", total),
		)
		p.collectPage(result, page, string(body), boundary)
	}

	return result, nil
}

func (p *Pager) collectPage(result *PagerResult, page int, body string, boundary geometry.Boundary) {
	pr, err := parser.ExtractPage(page, body, boundary)
	if err != nil {
		result.PagesSkipped++
		p.metrics.IncPage(pageSkipped)
		slog.Warn("skipping results page",
			slog.Int("page", page),
			slog.Any("error", err),
		)
		return
	}

	result.PagesProcessed++
	result.RowsSeen += pr.Rows
	p.metrics.IncPage(pageProcessed)

	for _, err := range pr.Errors {
		attrs := []any{slog.Int("page", page)}
		var rowErr parser.RowParseError
		if errors.As(err, &rowErr) {
			attrs = append(attrs, slog.Int("row", rowErr.Row), slog.String("key", rowErr.Key), slog.String("field", rowErr.Field))
		}
		slog.Warn("dropping malformed row", append(attrs, slog.Any("error", err))...)
	}
	for outcome, n := range pr.Outcomes {
		result.Outcomes[outcome] += n
		p.metrics.AddRows(outcome, n)
	}
	if n := pr.Outcomes[parser.RowMissingGeodata]; n > 0 {
		slog.Debug("rows without coordinates excluded", slog.Int("page", page), slog.Int("rows", n))
	}

	result.Records = append(result.Records, pr.Records...)
}

func asFetchError(stage string, err error) error {
	var fe FetchError
	if errors.As(err, &fe) {
		return err
	}
	return FetchError{Stage: stage, Err: err}
}
