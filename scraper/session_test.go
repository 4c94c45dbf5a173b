package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/internal/fixtures"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func TestParseSearchForm(t *testing.T) {
	base, err := url.Parse(testSearchURL)
	require.NoError(t, err)

	form, err := parseForm([]byte(fixtures.SearchForm()), base, SearchFormName)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, form.method)
	require.Equal(t, testHost+fixtures.SearchAction, form.action.String())

	require.Equal(t, "frames", form.values.Get("table"))
	require.Equal(t, "small", form.values.Get("imagesize"))
	require.Equal(t, "Search", form.values.Get("submit"))
	require.Contains(t, form.values, "minlat")
	require.NotContains(t, form.values, "geoncb", "unchecked boxes are not submitted")
	require.NotContains(t, form.values, "geon", "multi-selects without a selection are not submitted")
	require.NotContains(t, form.values, "q", "fields of other forms are ignored")
}

func TestParseGotoPageForm(t *testing.T) {
	base, err := url.Parse(testHost + fixtures.SearchAction)
	require.NoError(t, err)

	form, err := parseForm([]byte(fixtures.ResultsPage(1, 4, nil)), base, GotoFormName)
	require.NoError(t, err)
	require.Equal(t, testHost+fixtures.ResultsAction, form.action.String())
	require.Equal(t, url.Values{"results": {"q42"}, "page": {"1"}}, form.values)
}

func TestParseFormMissing(t *testing.T) {
	base, err := url.Parse(testSearchURL)
	require.NoError(t, err)

	_, err = parseForm([]byte("<html><body>maintenance</body></html>"), base, SearchFormName)
	require.ErrorIs(t, err, ErrFormNotFound)
}

func TestSearchCriteriaFields(t *testing.T) {
	box, err := geometry.NewBBox(-95, 29.25, -94, 30)
	require.NoError(t, err)

	values := url.Values{}
	BoundingBoxSearch{Box: box}.apply(values)
	require.Equal(t, url.Values{
		"minlon": {"-95.0"},
		"minlat": {"29.25"},
		"maxlon": {"-94.0"},
		"maxlat": {"30.0"},
	}, values)

	regions, err := NewRegionSearch(" USA ", "", "MEXICO")
	require.NoError(t, err)
	values = url.Values{"geon": {"CANADA"}}
	regions.apply(values)
	require.Equal(t, []string{"USA", "MEXICO"}, values["geon"])
	require.Equal(t, "on", values.Get("geoncb"))

	_, err = NewRegionSearch(" ")
	require.ErrorIs(t, err, ErrNoRegions)
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		-95:     "-95.0",
		0:       "0.0",
		29.5:    "29.5",
		-94.125: "-94.125",
	}
	for in, want := range tests {
		require.Equal(t, want, formatFloat(in))
	}
}

func TestSessionRetriesServerErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2

	calls := 0
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testSearchURL, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return httpmock.NewStringResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, fixtures.SearchForm()), nil
	})

	session, err := NewSession(cfg, NewMetrics())
	require.NoError(t, err)
	session.WithTransport(transport)

	require.NoError(t, session.OpenSearchForm(context.Background()))
	require.Equal(t, 2, calls)
	require.Equal(t, 1, session.RetryCount())
	require.Equal(t, 2, session.RequestCount())
}

func TestSessionGotoPageWithoutSearch(t *testing.T) {
	session, err := NewSession(testConfig(), nil)
	require.NoError(t, err)

	_, err = session.GotoPage(context.Background(), 2)
	var fetchErr FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, phaseGotoPage, fetchErr.Stage)
}

func TestSessionSearchPageWithoutForm(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testSearchURL, htmlResponder("<html><body>down for maintenance</body></html>"))

	session, err := NewSession(testConfig(), nil)
	require.NoError(t, err)
	session.WithTransport(transport)

	_, err = session.SubmitSearch(context.Background(), RegionSearch{Regions: []string{"USA"}})
	require.ErrorIs(t, err, ErrFormNotFound)
}
