// Package parser slices records and placemark attributes out of the
// catalog's markup using fixed textual landmarks.
package parser

import "regexp"

// Landmark is a fixed structural pattern in the catalog's markup. Case is
// exact: the site mixes <TABLE> and <table> and each landmark matches the
// casing it actually uses.
type Landmark struct {
	Name    string
	pattern *regexp.Regexp
}

func newLandmark(name, expr string) Landmark {
	return Landmark{Name: name, pattern: regexp.MustCompile(expr)}
}

var (
	PageCount   = newLandmark("page count", `Page <b>\d+</b> of <b>(\d+)</b><br>`)
	RowEnd      = newLandmark("row end", `</tr>`)
	CellEnd     = newLandmark("cell end", `</TD>`)
	TableStart  = newLandmark("table start", `<th>Quick View</th>`)
	TableEnd    = newLandmark("table end", `</TABLE></CENTER>`)
	LabeledCell = newLandmark("labeled cell", `<TD valign="top">([\-\. a-zA-Z0-9]*)</TD>`)
	AnchorCell  = newLandmark("anchor cell", `target="_blank">([ a-zA-Z0-9]*)</A></TD>`)
)

// Match is one landmark occurrence. Value holds the first capture group,
// if the landmark has one.
type Match struct {
	Start int
	End   int
	Value string
}

// Find returns the next occurrence of lm in buf at or after from.
func Find(buf string, lm Landmark, from int) (Match, bool) {
	if from < 0 {
		from = 0
	}
	if from > len(buf) {
		return Match{}, false
	}
	loc := lm.pattern.FindStringSubmatchIndex(buf[from:])
	if loc == nil {
		return Match{}, false
	}
	m := Match{Start: from + loc[0], End: from + loc[1]}
	if len(loc) >= 4 && loc[2] >= 0 {
		m.Value = buf[from+loc[2] : from+loc[3]]
	}
	return m, true
}
