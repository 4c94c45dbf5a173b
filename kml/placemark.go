// Package kml assembles placemarks for astronaut photographs and streams
// them as a single KML document.
package kml

import (
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"

	"github.com/aluiziolira/astrokml/models"
)

// Viewpoint constants shared by every placemark.
const (
	LookAtRange      = 40000
	AltitudeMode     = "relativeToGround"
	PlacemarkStyle   = "#" + StyleMapID
	snippetMaxLines  = 0
	placemarkClosed  = 0
	descriptionTitle = "Astronaut Photograph"
)

// Placemark is one photograph entry of the output document.
type Placemark struct {
	XMLName     xml.Name `xml:"Placemark"`
	Open        int      `xml:"open"`
	Name        string   `xml:"name"`
	StyleURL    string   `xml:"styleUrl"`
	Point       Point    `xml:"Point"`
	LookAt      LookAt   `xml:"LookAt"`
	Snippet     Snippet  `xml:"Snippet"`
	Description CDATA    `xml:"description"`
}

// Point holds coordinates as "lon,lat,elevation", copied verbatim from the
// attribute strings so no precision is gained or lost.
type Point struct {
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"`
}

type LookAt struct {
	Tilt      string `xml:"tilt"`
	Longitude string `xml:"longitude"`
	Latitude  string `xml:"latitude"`
	Range     int    `xml:"range"`
}

type Snippet struct {
	MaxLines int    `xml:"maxLines,attr"`
	Text     string `xml:",cdata"`
}

// CDATA is element content written as a character data section.
type CDATA struct {
	Text string `xml:",cdata"`
}

var descriptionTemplate = template.Must(template.New("description").Parse(
	`<P><IMG alt="{{.MRF}} image" src="{{.Image}}" align=top></P>

<P>&nbsp;</P>

<P><STRONG><FONT size=4>` + descriptionTitle + `</FONT></STRONG></P>

<P><STRONG>Features</STRONG>: {{.Features}}</P>

<P><STRONG>Acquired</STRONG>: {{.Date}} (YYYYMMDD), {{.Time}} (HHMMSS) GMT</P>

<P><STRONG>Camera Tilt</STRONG>: {{.CameraTilt}}&nbsp; <STRONG>Camera Lens</STRONG>: {{.CameraLens}}&nbsp; <STRONG>Camera</STRONG>: {{.Camera}}</P>

<P><STRONG>Sun Azimuth</STRONG>: {{.SunAzimuth}}&nbsp; <STRONG>Sun Elevation</STRONG>: {{.SunElevation}}&nbsp;<STRONG>Spacecraft Altitude</STRONG>: {{.SpacecraftAltitude}} nautical miles</P>

<P><STRONG>Database Entry Page</STRONG>: <FONT face=Arial><A href='{{.DBEntry}}'>{{.DBEntry}}</A></FONT></P>

<P><STRONG><FONT color="red">Astronaut photographs are not georectified, and therefore have orientation and scale independent from Google Earth base imagery.</FONT></STRONG></P>

<P>&nbsp;</P>

<P align=center><FONT face=Arial>&nbsp;Image Science and Analysis Laboratory, NASA-Johnson Space Center. "The Gateway to Astronaut Photography of Earth." <BR><A href="http://eol.jsc.nasa.gov/"><IMG height=71 alt="Crew Earth Observations" src="http://eol.jsc.nasa.gov/images/CEO.jpg" width=82 align=left border=0></A> <A href="http://www.nasa.gov/" target=_blank><IMG height=71 alt="NASA meatball" src="http://eol.jsc.nasa.gov/images/NASA.jpg" width=82 align=right border=0></A><BR>Send questions or comments to the NASA Responsible Official at <A href="mailto:jsc-earthweb@mail.nasa.gov">jsc-earthweb@mail.nasa.gov</A><BR>Notices: <A href="http://www.jsc.nasa.gov/policies.html" target=_blank>Web Accessibility and Policy Notices, NASA Web Privacy Policy</A><BR></FONT></P>`))

// NewPlacemark builds the entry for one attribute set.
func NewPlacemark(attrs models.AttributeSet) (Placemark, error) {
	if attrs.MRF == "" || attrs.Longitude == "" || attrs.Latitude == "" {
		return Placemark{}, fmt.Errorf("placemark needs name and coordinates, got %q (%q, %q)", attrs.MRF, attrs.Longitude, attrs.Latitude)
	}
	elevation := attrs.Elevation
	if elevation == "" {
		elevation = models.DefaultElevation
	}
	tilt := attrs.Tilt
	if tilt == "" {
		tilt = models.DefaultTilt
	}

	var desc strings.Builder
	if err := descriptionTemplate.Execute(&desc, attrs); err != nil {
		return Placemark{}, fmt.Errorf("render description for %s: %w", attrs.MRF, err)
	}

	return Placemark{
		Open:     placemarkClosed,
		Name:     attrs.MRF,
		StyleURL: PlacemarkStyle,
		Point: Point{
			AltitudeMode: AltitudeMode,
			Coordinates:  strings.Join([]string{attrs.Longitude, attrs.Latitude, elevation}, ","),
		},
		LookAt: LookAt{
			Tilt:      tilt,
			Longitude: attrs.Longitude,
			Latitude:  attrs.Latitude,
			Range:     LookAtRange,
		},
		Snippet: Snippet{
			MaxLines: snippetMaxLines,
			Text:     "<P>" + attrs.MRF + "</P>",
		},
		Description: CDATA{Text: desc.String()},
	}, nil
}
