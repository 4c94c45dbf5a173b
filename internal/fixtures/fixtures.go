// Package fixtures builds catalog pages and placemark documents for tests.
package fixtures

import (
	_ "embed"
	"fmt"
	"strings"
)

// Placemark is a detail document for ISS017-E-17188 as the catalog serves it.
//
//go:embed testdata/placemark.kml
var Placemark string

// Expected values of the Placemark fixture.
const (
	PlacemarkMRF       = "ISS017-E-17188"
	PlacemarkLongitude = "-94.50"
	PlacemarkLatitude  = "29.70"
	PlacemarkImage     = "http://eol.jsc.nasa.gov/sseop/images/ESC/small/ISS017/ISS017-E-17188.JPG"
	PlacemarkDBEntry   = "http://eol.jsc.nasa.gov/scripts/sseop/photo.pl?mission=ISS017&roll=E&frame=17188"
)

// PlacemarkFor rewrites the Placemark fixture for another photo and position.
func PlacemarkFor(mission, roll, frame, lon, lat string) string {
	key := fmt.Sprintf("%s-%s-%s", mission, roll, frame)
	r := strings.NewReplacer(
		PlacemarkMRF, key,
		"mission=ISS017&roll=E&frame=17188", fmt.Sprintf("mission=%s&roll=%s&frame=%s", mission, roll, frame),
		"/ISS017/", "/"+mission+"/",
		"<longitude>"+PlacemarkLongitude+"<", "<longitude>"+lon+"<",
		"<latitude>"+PlacemarkLatitude+"<", "<latitude>"+lat+"<",
		PlacemarkLongitude+","+PlacemarkLatitude+",0", lon+","+lat+",0",
	)
	return r.Replace(Placemark)
}

// Row is one line of the search results table.
type Row struct {
	Mission string
	Roll    string
	Frame   string
	Lat     string
	Lon     string
}

// Key returns the mission-roll-frame identifier of the row.
func (r Row) Key() string {
	return fmt.Sprintf("%s-%s-%s", r.Mission, r.Roll, r.Frame)
}

// RowMarkup renders a row fragment the way the results table does,
// terminator included.
func RowMarkup(r Row) string {
	var b strings.Builder
	b.WriteString("<tr>")
	fmt.Fprintf(&b, "<TD valign=\"top\">%s</TD>", r.Mission)
	fmt.Fprintf(&b, "<TD valign=\"top\">%s</TD>", r.Roll)
	fmt.Fprintf(&b, "<TD valign=\"top\"><A HREF=\"/scripts/sseop/photo.pl?mission=%s&roll=%s&frame=%s\" target=\"_blank\">%s</A></TD>",
		r.Mission, r.Roll, r.Frame, r.Frame)
	fmt.Fprintf(&b, "<TD><A HREF=\"/scripts/sseop/QuickView.pl?photo=%s\">View</A></TD>", r.Key())
	b.WriteString("<TD valign=\"top\">GULF COAST</TD>")
	fmt.Fprintf(&b, "<TD valign=\"top\">%s</TD>", r.Lat)
	fmt.Fprintf(&b, "<TD valign=\"top\">%s</TD>", r.Lon)
	b.WriteString("<TD valign=\"top\">20081005</TD>")
	b.WriteString("</tr>\n")
	return b.String()
}

// ResultsAction is the form action used by both search and pagination forms.
const ResultsAction = "/scripts/sseop/QueryResults.pl"

// ResultsPage renders a complete results page including the GoToPage form.
func ResultsPage(page, total int, rows []Row) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Search Results</title></head><body>\n")
	fmt.Fprintf(&b, "<P>%d photos found. Page <b>%d</b> of <b>%d</b><br>\n", len(rows)*total, page, total)
	b.WriteString("<CENTER><TABLE border=1 cellpadding=2>\n")
	b.WriteString("<tr><th>Mission</th><th>Roll</th><th>Frame</th><th>Quick View</th><th>Features</th><th>Lat</th><th>Lon</th><th>Date</th></tr>\n")
	for _, r := range rows {
		b.WriteString(RowMarkup(r))
	}
	b.WriteString("</TABLE></CENTER>\n")
	b.WriteString(GotoPageForm(page))
	b.WriteString("</body></html>\n")
	return b.String()
}

// GotoPageForm renders the pagination form.
func GotoPageForm(page int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<form name=\"GoToPage\" method=\"POST\" action=\"%s\">\n", ResultsAction)
	b.WriteString("<input type=\"hidden\" name=\"results\" value=\"q42\">\n")
	fmt.Fprintf(&b, "<input type=\"text\" name=\"page\" value=\"%d\" size=3>\n", page)
	b.WriteString("<input type=\"submit\" value=\"Go\">\n")
	b.WriteString("</form>\n")
	return b.String()
}

// SearchAction is the action of the technical search form.
const SearchAction = "/scripts/sseop/QueryTechnical.pl"

// SearchForm renders the technical search page.
func SearchForm() string {
	var b strings.Builder
	b.WriteString("<html><body><h1>Technical Search</h1>\n")
	b.WriteString("<form name=\"quick\" action=\"/scripts/sseop/Quick.pl\"><input name=\"q\"></form>\n")
	fmt.Fprintf(&b, "<form name=\"sqlform\" method=\"POST\" action=\"%s\">\n", SearchAction)
	b.WriteString("<input type=\"hidden\" name=\"table\" value=\"frames\">\n")
	b.WriteString("<input type=\"text\" name=\"minlat\" value=\"\">\n")
	b.WriteString("<input type=\"text\" name=\"maxlat\" value=\"\">\n")
	b.WriteString("<input type=\"text\" name=\"minlon\" value=\"\">\n")
	b.WriteString("<input type=\"text\" name=\"maxlon\" value=\"\">\n")
	b.WriteString("<input type=\"checkbox\" name=\"geoncb\">\n")
	b.WriteString("<select name=\"geon\" multiple><option value=\"USA\">USA</option><option value=\"MEXICO\">MEXICO</option></select>\n")
	b.WriteString("<select name=\"imagesize\"><option value=\"small\" selected>small</option><option value=\"any\">any</option></select>\n")
	b.WriteString("<input type=\"submit\" name=\"submit\" value=\"Search\">\n")
	b.WriteString("</form></body></html>\n")
	return b.String()
}
