package scraper

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/aluiziolira/astrokml/geometry"
)

// Search form field names.
const (
	fieldMinLat    = "minlat"
	fieldMaxLat    = "maxlat"
	fieldMinLon    = "minlon"
	fieldMaxLon    = "maxlon"
	fieldRegionsOn = "geoncb"
	fieldRegions   = "geon"
	fieldImageSize = "imagesize"
	fieldPage      = "page"
)

// SearchCriteria narrows the catalog search. It is either a
// BoundingBoxSearch or a RegionSearch.
type SearchCriteria interface {
	apply(form url.Values)
	String() string
}

// BoundingBoxSearch restricts results to a lon/lat box.
type BoundingBoxSearch struct {
	Box geometry.BBox
}

func (c BoundingBoxSearch) apply(form url.Values) {
	form.Set(fieldMinLat, formatFloat(c.Box.MinLat))
	form.Set(fieldMaxLat, formatFloat(c.Box.MaxLat))
	form.Set(fieldMinLon, formatFloat(c.Box.MinLon))
	form.Set(fieldMaxLon, formatFloat(c.Box.MaxLon))
}

func (c BoundingBoxSearch) String() string {
	return "bbox(" + c.Box.String() + ")"
}

// RegionSearch restricts results to the catalog's predefined regions.
type RegionSearch struct {
	Regions []string
}

// ErrNoRegions is returned when a region search names no region.
var ErrNoRegions = errors.New("region search needs at least one region")

func NewRegionSearch(regions ...string) (RegionSearch, error) {
	var out []string
	for _, r := range regions {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return RegionSearch{}, ErrNoRegions
	}
	return RegionSearch{Regions: out}, nil
}

func (c RegionSearch) apply(form url.Values) {
	form.Set(fieldRegionsOn, "on")
	form[fieldRegions] = append([]string(nil), c.Regions...)
}

func (c RegionSearch) String() string {
	return "regions(" + strings.Join(c.Regions, ",") + ")"
}

// formatFloat always keeps a fractional part ("-95.0", not "-95"), which
// is the form the search script has been observed to accept.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
