package parser

import (
	"fmt"
	"strconv"

	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/models"
)

// PageTotal reads the "Page X of N" landmark from a results buffer.
func PageTotal(buf string) (int, error) {
	m, ok := Find(buf, PageCount, 0)
	if !ok {
		return 0, ErrPageDiscovery
	}
	n, err := strconv.Atoi(m.Value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid page count %q", ErrPageDiscovery, m.Value)
	}
	return n, nil
}

// Page is the results table of one page with a read cursor over its rows.
type Page struct {
	Number int
	buf    string
	cursor int
}

// NewPage trims raw to the results table and skips the header row.
func NewPage(number int, raw string) (*Page, error) {
	start, ok := Find(raw, TableStart, 0)
	if !ok {
		return nil, PageParseError{Page: number, Landmark: TableStart.Name}
	}
	end, ok := Find(raw, TableEnd, start.End)
	if !ok {
		return nil, PageParseError{Page: number, Landmark: TableEnd.Name}
	}

	p := &Page{Number: number, buf: raw[start.End:end.Start]}
	p.NextRow()
	return p, nil
}

// NextRow returns the text up to the next row terminator and advances the
// cursor past it. It reports false once no terminator remains.
func (p *Page) NextRow() (string, bool) {
	m, ok := Find(p.buf, RowEnd, p.cursor)
	if !ok {
		return "", false
	}
	row := p.buf[p.cursor:m.Start]
	p.cursor = m.End
	return row, true
}

// Row outcome labels, shared with metrics and run statistics.
const (
	RowIncluded       = "included"
	RowOutsideRegion  = "outside_region"
	RowMissingGeodata = "missing_geodata"
	RowParseFailed    = "parse_error"
)

// PageResult is what a page contributed to the run.
type PageResult struct {
	Records  []models.Record
	Rows     int
	Outcomes map[string]int
	Errors   []error
}

// ExtractPage runs the Record Extractor over every row of a results page.
// Row failures are collected and do not stop the scan.
func ExtractPage(number int, raw string, boundary geometry.Boundary) (PageResult, error) {
	page, err := NewPage(number, raw)
	if err != nil {
		return PageResult{}, err
	}

	result := PageResult{Outcomes: make(map[string]int)}
	for {
		row, ok := page.NextRow()
		if !ok {
			break
		}
		result.Rows++

		outcome, rec, err := classifyRow(row, number, result.Rows, boundary)
		result.Outcomes[outcome]++
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		if outcome == RowIncluded {
			result.Records = append(result.Records, rec)
		}
	}
	return result, nil
}

func classifyRow(row string, page, index int, boundary geometry.Boundary) (string, models.Record, error) {
	rec, geo, err := extractRow(row, page, index, boundary != nil)
	if err != nil {
		return RowParseFailed, models.Record{}, err
	}
	if boundary == nil {
		return RowIncluded, rec, nil
	}
	if geo.missing {
		return RowMissingGeodata, rec, nil
	}
	if !boundary.Contains(geo.lon, geo.lat) {
		return RowOutsideRegion, rec, nil
	}
	return RowIncluded, rec, nil
}
