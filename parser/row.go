package parser

import (
	"strconv"
	"strings"

	"github.com/aluiziolira/astrokml/geometry"
	"github.com/aluiziolira/astrokml/models"
)

// cellsBeforeGeodata is the number of cells between the frame cell and the
// latitude cell in a results row.
const cellsBeforeGeodata = 2

type rowGeodata struct {
	lon, lat float64
	missing  bool
}

// ExtractRecord parses one row fragment. With a boundary the row is kept
// only when its coordinates lie inside it; rows with blank coordinates are
// excluded without an error.
func ExtractRecord(fragment string, page int, boundary geometry.Boundary) (models.Record, bool, error) {
	outcome, rec, err := classifyRow(fragment, page, 0, boundary)
	if err != nil {
		return models.Record{}, false, err
	}
	return rec, outcome == RowIncluded, nil
}

// rowCursor builds RowParseErrors carrying the key read so far.
type rowCursor struct {
	page, index int
	key         []string
}

func (c *rowCursor) fail(field string, err error) error {
	return RowParseError{Page: c.page, Row: c.index, Key: strings.Join(c.key, "-"), Field: field, Err: err}
}

func extractRow(row string, page, index int, withGeodata bool) (models.Record, rowGeodata, error) {
	c := &rowCursor{page: page, index: index}

	mission, ok := Find(row, LabeledCell, 0)
	if !ok {
		return models.Record{}, rowGeodata{}, c.fail("mission", nil)
	}
	c.key = append(c.key, NormalizeIdentifier(mission.Value))
	roll, ok := Find(row, LabeledCell, mission.End)
	if !ok {
		return models.Record{}, rowGeodata{}, c.fail("roll", nil)
	}
	c.key = append(c.key, NormalizeIdentifier(roll.Value))
	frame, ok := Find(row, AnchorCell, roll.End)
	if !ok {
		return models.Record{}, rowGeodata{}, c.fail("frame", nil)
	}
	c.key = append(c.key, NormalizeIdentifier(frame.Value))

	rec := models.Record{
		Mission: c.key[0],
		Roll:    c.key[1],
		Frame:   c.key[2],
		Page:    page,
	}
	if err := ValidateRecord(rec); err != nil {
		return models.Record{}, rowGeodata{}, c.fail("identifier", err)
	}
	if !withGeodata {
		return rec, rowGeodata{}, nil
	}

	cursor := frame.End
	for i := 0; i < cellsBeforeGeodata; i++ {
		cell, ok := Find(row, CellEnd, cursor)
		if !ok {
			return models.Record{}, rowGeodata{}, c.fail("geodata cells", nil)
		}
		cursor = cell.End
	}
	lat, ok := Find(row, LabeledCell, cursor)
	if !ok {
		return models.Record{}, rowGeodata{}, c.fail("latitude", nil)
	}
	lon, ok := Find(row, LabeledCell, lat.End)
	if !ok {
		return models.Record{}, rowGeodata{}, c.fail("longitude", nil)
	}

	latText := strings.TrimSpace(lat.Value)
	lonText := strings.TrimSpace(lon.Value)
	if latText == "" || lonText == "" {
		return rec, rowGeodata{missing: true}, nil
	}

	latValue, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return models.Record{}, rowGeodata{}, c.fail("latitude", err)
	}
	lonValue, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return models.Record{}, rowGeodata{}, c.fail("longitude", err)
	}
	return rec, rowGeodata{lon: lonValue, lat: latValue}, nil
}
