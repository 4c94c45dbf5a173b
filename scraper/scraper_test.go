package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/astrokml/config"
	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/internal/fixtures"
	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/parser"
	"github.com/aluiziolira/astrokml/pipeline"
	"github.com/jarcoal/httpmock"
)

const (
	testHost      = "http://catalog.test"
	testSearchURL = testHost + "/sseop/technical.htm"
	testDetailURL = testHost + "/scripts/sseop/PhotoKML.pl"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SearchURL = testSearchURL
	cfg.DetailURL = testDetailURL
	cfg.RequestsPerSecond = 0
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	cfg.Workers = 2
	return cfg
}

func TestBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	if got := backoff(cfg, 1); got != 200*time.Millisecond {
		t.Fatalf("first delay = %v, want 200ms", got)
	}
	if got := backoff(cfg, 2); got != 400*time.Millisecond {
		t.Fatalf("second delay = %v, want 400ms", got)
	}
	if got := backoff(cfg, 4); got > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", got, cfg.RetryBackoffMax)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
		retry      bool
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout", retry: true},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout", retry: true},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection", retry: true},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited", retry: true},
		{name: "server error", err: errors.New("Internal Server Error"), statusCode: http.StatusBadGateway, expected: "server_error", retry: true},
		{name: "not placemark", err: fmt.Errorf("x: %w", parser.ErrNotPlacemark), statusCode: 0, expected: "not_placemark"},
		{name: "metadata", err: parser.MetadataParseError{Reason: "short"}, statusCode: 0, expected: "metadata_parse"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError(tt.err, tt.statusCode)
			if got := errorTypeLabel(classified); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
			if got := retryable(classified); got != tt.retry {
				t.Fatalf("retryable = %v, want %v", got, tt.retry)
			}
		})
	}
}

type collectingWriter struct {
	mu   sync.Mutex
	sets []models.AttributeSet
}

func (cw *collectingWriter) Write(sets []models.AttributeSet) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.sets = append(cw.sets, sets...)
	return nil
}

func (cw *collectingWriter) Close() error {
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) Keys() []string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]string, 0, len(cw.sets))
	for _, s := range cw.sets {
		out = append(out, s.MRF)
	}
	return out
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

// catalog serves a search page, paged results and placemark documents.
type catalog struct {
	pages      []string
	placemarks map[string]string

	mu          sync.Mutex
	searchForms []string
	gotoPages   []string
}

func newCatalogTransport(c *catalog) *httpmock.MockTransport {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testSearchURL, htmlResponder(fixtures.SearchForm()))
	transport.RegisterResponder("POST", testHost+fixtures.SearchAction, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.searchForms = append(c.searchForms, req.PostForm.Encode())
		c.mu.Unlock()
		return httpmock.NewStringResponse(200, c.pages[0]), nil
	})
	transport.RegisterResponder("POST", testHost+fixtures.ResultsAction, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		page := req.PostForm.Get("page")
		c.mu.Lock()
		c.gotoPages = append(c.gotoPages, page)
		c.mu.Unlock()
		var n int
		if _, err := fmt.Sscanf(page, "%d", &n); err != nil || n < 1 || n > len(c.pages) {
			return httpmock.NewStringResponse(404, "no such page"), nil
		}
		return httpmock.NewStringResponse(200, c.pages[n-1]), nil
	})
	transport.RegisterResponder("GET", testDetailURL, func(req *http.Request) (*http.Response, error) {
		doc, ok := c.placemarks[req.URL.Query().Get("photo")]
		if !ok {
			return httpmock.NewStringResponse(200, "No photo found\n"), nil
		}
		return httpmock.NewStringResponse(200, doc), nil
	})
	return transport
}

func TestScraper_Integration(t *testing.T) {
	cfg := testConfig()

	pageRows := [][]fixtures.Row{
		{
			{Mission: "ISS017", Roll: "E", Frame: "100", Lat: "29.5", Lon: "-94.5"},
			{Mission: "ISS017", Roll: "E", Frame: "101", Lat: "29.5", Lon: "-96.0"},
			{Mission: "ISS017", Roll: "E", Frame: "102", Lat: "", Lon: ""},
		},
		{
			{Mission: "ISS017", Roll: "E", Frame: "200", Lat: "", Lon: ""},
			{Mission: "ISS017", Roll: "E", Frame: "201", Lat: "31.0", Lon: "-94.5"},
			{Mission: "ISS017", Roll: "E", Frame: "202", Lat: "29.9", Lon: "-94.1"},
		},
	}
	c := &catalog{placemarks: make(map[string]string)}
	for i, rows := range pageRows {
		c.pages = append(c.pages, fixtures.ResultsPage(i+1, len(pageRows), rows))
		for _, r := range rows {
			c.placemarks[r.Key()] = fixtures.PlacemarkFor(r.Mission, r.Roll, r.Frame, r.Lon, r.Lat)
		}
	}

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.WithTransport(newCatalogTransport(c))

	box, err := geometry.NewBBox(-95, 29, -94, 30)
	if err != nil {
		t.Fatalf("bbox: %v", err)
	}
	writer := &collectingWriter{}
	p := pipeline.NewPipeline(writer, s.Details(), cfg.Workers)

	result, err := s.Run(context.Background(), BoundingBoxSearch{Box: box}, box, p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	want := []string{"ISS017-E-100", "ISS017-E-202"}
	got := writer.Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("written = %v, want %v (failed=%v)", got, want, result.FailedRecords)
	}
	if len(result.Records) != 2 || result.Records[0].Page != 1 || result.Records[1].Page != 2 {
		t.Fatalf("records = %+v, want one per page", result.Records)
	}
	if result.RecordsWritten != 2 || result.PageCount != 2 || result.RowsSeen != 6 {
		t.Fatalf("result = %+v", result)
	}
	if result.RowsDropped[parser.RowOutsideRegion] != 2 || result.RowsDropped[parser.RowMissingGeodata] != 2 {
		t.Fatalf("rows dropped = %v", result.RowsDropped)
	}

	if len(c.searchForms) != 1 {
		t.Fatalf("search submissions = %d, want 1", len(c.searchForms))
	}
	for _, field := range []string{"minlon=-95.0", "minlat=29.0", "maxlon=-94.0", "maxlat=30.0", "imagesize=any", "table=frames", "submit=Search"} {
		if !strings.Contains(c.searchForms[0], field) {
			t.Fatalf("search form %q missing %q", c.searchForms[0], field)
		}
	}
	if strings.Join(c.gotoPages, ",") != "2" {
		t.Fatalf("goto pages = %v, want [2]", c.gotoPages)
	}
}

func TestScraperDropsUnknownPhotos(t *testing.T) {
	cfg := testConfig()

	rows := []fixtures.Row{
		{Mission: "STS061", Roll: "A", Frame: "1"},
		{Mission: "STS061", Roll: "A", Frame: "2"},
		{Mission: "STS061", Roll: "A", Frame: "3"},
	}
	c := &catalog{
		pages: []string{fixtures.ResultsPage(1, 1, rows)},
		placemarks: map[string]string{
			rows[0].Key(): fixtures.PlacemarkFor("STS061", "A", "1", "10.0", "20.0"),
			rows[2].Key(): fixtures.PlacemarkFor("STS061", "A", "3", "11.0", "21.0"),
		},
	}

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.WithTransport(newCatalogTransport(c))

	criteria, err := NewRegionSearch("USA")
	if err != nil {
		t.Fatalf("criteria: %v", err)
	}
	writer := &collectingWriter{}
	p := pipeline.NewPipeline(writer, s.Details(), cfg.Workers)

	result, err := s.Run(context.Background(), criteria, nil, p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := strings.Join(writer.Keys(), ","); got != "STS061-A-1,STS061-A-3" {
		t.Fatalf("written = %s", got)
	}
	if len(result.FailedRecords) != 1 || result.FailedRecords[0] != "STS061-A-2" {
		t.Fatalf("failed = %v, want [STS061-A-2]", result.FailedRecords)
	}
	if !strings.Contains(c.searchForms[0], "geoncb=on") || !strings.Contains(c.searchForms[0], "geon=USA") {
		t.Fatalf("region fields missing from %q", c.searchForms[0])
	}
}

func TestScraperSearchFailureIsFatal(t *testing.T) {
	cfg := testConfig()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testSearchURL, httpmock.NewStringResponder(http.StatusForbidden, ""))

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.WithTransport(transport)

	p := pipeline.NewPipeline(&collectingWriter{}, s.Details(), 1)
	_, err = s.Run(context.Background(), RegionSearch{Regions: []string{"USA"}}, nil, p)

	var fetchErr FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want forbidden classification", err)
	}
}
