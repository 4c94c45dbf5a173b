package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/astrokml/models"
)

// PlacemarkRoot marks the first line of a valid detail document.
const PlacemarkRoot = "<Placemark>"

// placemarkMinLines is one past the highest line index any rule reads.
const placemarkMinLines = 28

// attributeRule slices one attribute out of a fixed line of the detail
// document. Rules are evaluated independently so one broken rule never
// blocks the rest.
type attributeRule struct {
	name     string
	line     int
	advance  int    // semicolons to skip before searching
	from     string // value starts after this
	skip     int    // extra bytes skipped after from
	to       string // value ends before this
	keepTo   bool   // include to in the value
	required bool
	set      func(*models.AttributeSet, string)
}

var placemarkRules = []attributeRule{
	{name: models.AttrMRF, line: 2, from: "<name>", to: "</name>", required: true,
		set: func(a *models.AttributeSet, v string) { a.MRF = v }},
	{name: models.AttrColor, line: 6, from: "<color>", to: "</color",
		set: func(a *models.AttributeSet, v string) { a.Color = v }},
	{name: models.AttrLongitude, line: 15, from: "<longitude>", to: "</longitude", required: true,
		set: func(a *models.AttributeSet, v string) { a.Longitude = v }},
	{name: models.AttrLatitude, line: 16, from: "<latitude>", to: "</latitude", required: true,
		set: func(a *models.AttributeSet, v string) { a.Latitude = v }},
	{name: models.AttrImage, line: 20, from: "src=", skip: 1, to: ".JPG", keepTo: true,
		set: func(a *models.AttributeSet, v string) { a.Image = v }},
	{name: models.AttrFeatures, line: 23, from: ": ", to: "</P>",
		set: func(a *models.AttributeSet, v string) { a.Features = v }},
	{name: models.AttrDate, line: 24, from: ": ", to: " (",
		set: func(a *models.AttributeSet, v string) { a.Date = v }},
	{name: models.AttrTime, line: 24, from: "DD), ", to: " (HH",
		set: func(a *models.AttributeSet, v string) { a.Time = v }},
	{name: models.AttrCameraTilt, line: 25, from: ": ", to: "&nbsp",
		set: func(a *models.AttributeSet, v string) { a.CameraTilt = v }},
	{name: models.AttrCameraLens, line: 25, advance: 1, from: ": ", to: "&nbsp",
		set: func(a *models.AttributeSet, v string) { a.CameraLens = v }},
	{name: models.AttrCamera, line: 25, advance: 2, from: ": ", to: "</P>",
		set: func(a *models.AttributeSet, v string) { a.Camera = v }},
	{name: models.AttrSunAzimuth, line: 26, from: ": ", to: "&nbsp",
		set: func(a *models.AttributeSet, v string) { a.SunAzimuth = v }},
	{name: models.AttrSunElevation, line: 26, advance: 1, from: ": ", to: "&nbsp",
		set: func(a *models.AttributeSet, v string) { a.SunElevation = v }},
	{name: models.AttrSpacecraftAltitude, line: 26, advance: 2, from: ": ", to: " nau",
		set: func(a *models.AttributeSet, v string) { a.SpacecraftAltitude = v }},
	{name: models.AttrDBEntry, line: 27, from: "='", to: "'>",
		set: func(a *models.AttributeSet, v string) { a.DBEntry = v }},
}

func (r attributeRule) apply(lines []string) (string, bool) {
	if r.line >= len(lines) {
		return "", false
	}
	text := lines[r.line]
	for i := 0; i < r.advance; i++ {
		idx := strings.Index(text, ";")
		if idx < 0 {
			return "", false
		}
		text = text[idx+1:]
	}

	start := strings.Index(text, r.from)
	if start < 0 {
		return "", false
	}
	start += len(r.from) + r.skip
	if start > len(text) {
		return "", false
	}
	end := strings.Index(text[start:], r.to)
	if end < 0 {
		return "", false
	}
	end += start
	if r.keepTo {
		end += len(r.to)
	}
	return text[start:end], true
}

// ParsePlacemark extracts the attribute set from a detail document split
// into lines. Attributes whose rule did not match are left empty and named
// in the returned list. A document without the placemark root yields
// ErrNotPlacemark.
func ParsePlacemark(lines []string) (models.AttributeSet, []string, error) {
	if len(lines) == 0 || !strings.Contains(lines[0], PlacemarkRoot) {
		return models.AttributeSet{}, nil, ErrNotPlacemark
	}
	if len(lines) < placemarkMinLines {
		return models.AttributeSet{}, nil, MetadataParseError{
			Reason: fmt.Sprintf("document has %d lines, want at least %d", len(lines), placemarkMinLines),
		}
	}

	attrs := models.AttributeSet{
		Elevation: models.DefaultElevation,
		Tilt:      models.DefaultTilt,
	}
	var missing, missingRequired []string
	for _, rule := range placemarkRules {
		value, ok := rule.apply(lines)
		if !ok || (rule.required && strings.TrimSpace(value) == "") {
			missing = append(missing, rule.name)
			if rule.required {
				missingRequired = append(missingRequired, rule.name)
			}
			continue
		}
		rule.set(&attrs, value)
	}

	if len(missingRequired) > 0 {
		return attrs, missing, MetadataParseError{
			Key:    attrs.MRF,
			Reason: "missing required attributes: " + strings.Join(missingRequired, ", "),
		}
	}
	return attrs, missing, nil
}
