// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"time"
)

// Record identifies one astronaut photograph found in the search results.
type Record struct {
	Mission string `csv:"mission" json:"mission"`
	Roll    string `csv:"roll" json:"roll"`
	Frame   string `csv:"frame" json:"frame"`
	Page    int    `csv:"page" json:"page"`
}

// Key returns the mission-roll-frame identifier used by the catalog.
func (r Record) Key() string {
	return fmt.Sprintf("%s-%s-%s", r.Mission, r.Roll, r.Frame)
}

// Attribute names as they appear in the placemark description template.
const (
	AttrMRF                = "MRF"
	AttrColor              = "Color"
	AttrElevation          = "Elevation"
	AttrTilt               = "Tilt"
	AttrLongitude          = "Longitude"
	AttrLatitude           = "Latitude"
	AttrImage              = "IMG"
	AttrFeatures           = "Features"
	AttrDate               = "YYYYMMDD"
	AttrTime               = "HHMMSS"
	AttrCameraTilt         = "Camera Tilt"
	AttrCameraLens         = "Camera Lens"
	AttrCamera             = "Camera"
	AttrSunAzimuth         = "Sun Azimuth"
	AttrSunElevation       = "Sun Elevation"
	AttrSpacecraftAltitude = "Spacecraft Altitude"
	AttrDBEntry            = "DB Entry"
)

// AttributeNames lists every attribute of an AttributeSet in output order.
var AttributeNames = []string{
	AttrMRF,
	AttrColor,
	AttrElevation,
	AttrTilt,
	AttrLongitude,
	AttrLatitude,
	AttrImage,
	AttrFeatures,
	AttrDate,
	AttrTime,
	AttrCameraTilt,
	AttrCameraLens,
	AttrCamera,
	AttrSunAzimuth,
	AttrSunElevation,
	AttrSpacecraftAltitude,
	AttrDBEntry,
}

// Defaults that are not read from the placemark document. Elevation and
// Tilt only drive the rendered point and viewpoint.
const (
	DefaultElevation = "3000"
	DefaultTilt      = "0"
)

// AttributeSet holds the descriptive fields recovered for one Record.
type AttributeSet struct {
	MRF                string `csv:"mrf" json:"mrf"`
	Color              string `csv:"color" json:"color"`
	Elevation          string `csv:"elevation" json:"elevation"`
	Tilt               string `csv:"tilt" json:"tilt"`
	Longitude          string `csv:"longitude" json:"longitude"`
	Latitude           string `csv:"latitude" json:"latitude"`
	Image              string `csv:"img" json:"img"`
	Features           string `csv:"features" json:"features"`
	Date               string `csv:"yyyymmdd" json:"yyyymmdd"`
	Time               string `csv:"hhmmss" json:"hhmmss"`
	CameraTilt         string `csv:"camera_tilt" json:"camera_tilt"`
	CameraLens         string `csv:"camera_lens" json:"camera_lens"`
	Camera             string `csv:"camera" json:"camera"`
	SunAzimuth         string `csv:"sun_azimuth" json:"sun_azimuth"`
	SunElevation       string `csv:"sun_elevation" json:"sun_elevation"`
	SpacecraftAltitude string `csv:"spacecraft_altitude" json:"spacecraft_altitude"`
	DBEntry            string `csv:"db_entry" json:"db_entry"`
}

// Map returns the attributes keyed by their display names.
func (a AttributeSet) Map() map[string]string {
	return map[string]string{
		AttrMRF:                a.MRF,
		AttrColor:              a.Color,
		AttrElevation:          a.Elevation,
		AttrTilt:               a.Tilt,
		AttrLongitude:          a.Longitude,
		AttrLatitude:           a.Latitude,
		AttrImage:              a.Image,
		AttrFeatures:           a.Features,
		AttrDate:               a.Date,
		AttrTime:               a.Time,
		AttrCameraTilt:         a.CameraTilt,
		AttrCameraLens:         a.CameraLens,
		AttrCamera:             a.Camera,
		AttrSunAzimuth:         a.SunAzimuth,
		AttrSunElevation:       a.SunElevation,
		AttrSpacecraftAltitude: a.SpacecraftAltitude,
		AttrDBEntry:            a.DBEntry,
	}
}

// Values returns the attribute values in AttributeNames order.
func (a AttributeSet) Values() []string {
	m := a.Map()
	out := make([]string, 0, len(AttributeNames))
	for _, name := range AttributeNames {
		out = append(out, m[name])
	}
	return out
}

// RunResult holds the overall result of a scraping run.
type RunResult struct {
	Records        []Record
	StartTime      time.Time
	EndTime        time.Time
	PageCount      int
	PagesSkipped   int
	RowsSeen       int
	RowsDropped    map[string]int
	RecordsWritten int
	FailedRecords  []string
	RequestCount   int
	RetryCount     int
}
