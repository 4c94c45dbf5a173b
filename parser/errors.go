package parser

import (
	"errors"
	"fmt"
)

// ErrNotPlacemark is how the catalog reports an unknown photo: the detail
// document comes back without a placemark root.
var ErrNotPlacemark = errors.New("document is not a placemark")

// ErrPageDiscovery indicates the total page count landmark was absent.
var ErrPageDiscovery = errors.New("cannot determine number of result pages")

// PageParseError indicates a results page whose table could not be located.
type PageParseError struct {
	Page     int
	Landmark string
}

func (e PageParseError) Error() string {
	return fmt.Sprintf("page %d: %s landmark not found", e.Page, e.Landmark)
}

// RowParseError indicates a row fragment that does not have the expected
// cell layout. Key holds as much of the mission-roll-frame key as was
// read before the failure; Row is the 1-based row on the page, or 0 when
// the row was parsed on its own.
type RowParseError struct {
	Page  int
	Row   int
	Key   string
	Field string
	Err   error
}

func (e RowParseError) Error() string {
	where := fmt.Sprintf("page %d row", e.Page)
	if e.Row > 0 {
		where += fmt.Sprintf(" %d", e.Row)
	}
	if e.Key != "" {
		where += fmt.Sprintf(" (%s)", e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s not found", where, e.Field)
}

func (e RowParseError) Unwrap() error {
	return e.Err
}

// MetadataParseError indicates a placemark document that does not have the
// expected line layout.
type MetadataParseError struct {
	Key    string
	URL    string
	Reason string
}

func (e MetadataParseError) Error() string {
	msg := "placemark"
	if e.Key != "" {
		msg += " " + e.Key
	}
	msg += ": " + e.Reason
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	return msg
}
