package kml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Namespace is the KML 2.2 namespace.
const Namespace = "http://www.opengis.net/kml/2.2"

// Shared style identifiers. Every placemark references the style map,
// which picks the hidden label normally and the enlarged one on hover.
const (
	NormalStyleID    = "sn_style"
	HighlightStyleID = "sh_style"
	StyleMapID       = "sm_style"
)

type Style struct {
	XMLName    xml.Name   `xml:"Style"`
	ID         string     `xml:"id,attr"`
	LabelStyle LabelStyle `xml:"LabelStyle"`
}

type LabelStyle struct {
	Scale string `xml:"scale"`
}

type StyleMap struct {
	XMLName xml.Name `xml:"StyleMap"`
	ID      string   `xml:"id,attr"`
	Pairs   []Pair   `xml:"Pair"`
}

type Pair struct {
	Key      string `xml:"key"`
	StyleURL string `xml:"styleUrl"`
}

// SharedStyles returns the style definitions emitted once per document.
func SharedStyles() ([]Style, StyleMap) {
	styles := []Style{
		{ID: NormalStyleID, LabelStyle: LabelStyle{Scale: "0"}},
		{ID: HighlightStyleID, LabelStyle: LabelStyle{Scale: "1.1"}},
	}
	styleMap := StyleMap{
		ID: StyleMapID,
		Pairs: []Pair{
			{Key: "normal", StyleURL: "#" + NormalStyleID},
			{Key: "highlight", StyleURL: "#" + HighlightStyleID},
		},
	}
	return styles, styleMap
}

var (
	ErrEncoderClosed  = errors.New("kml: encoder closed")
	ErrEncoderStarted = errors.New("kml: document already started")
)

var (
	kmlElement      = xml.Name{Space: Namespace, Local: "kml"}
	documentElement = xml.Name{Local: "Document"}
)

// Encoder streams a KML document: the header and shared styles on Begin,
// one placemark per Encode, the closing tags on Close.
type Encoder struct {
	w       io.Writer
	enc     *xml.Encoder
	started bool
	closed  bool
	count   int
}

func NewEncoder(w io.Writer) *Encoder {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return &Encoder{w: w, enc: enc}
}

// Begin writes the XML declaration, the document element and its styles.
func (e *Encoder) Begin(name string) error {
	if e.closed {
		return ErrEncoderClosed
	}
	if e.started {
		return ErrEncoderStarted
	}
	e.started = true

	if _, err := io.WriteString(e.w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	if err := e.enc.EncodeToken(xml.StartElement{Name: kmlElement}); err != nil {
		return fmt.Errorf("open kml element: %w", err)
	}
	if err := e.enc.EncodeToken(xml.StartElement{Name: documentElement}); err != nil {
		return fmt.Errorf("open document element: %w", err)
	}
	if name != "" {
		if err := e.enc.EncodeElement(name, xml.StartElement{Name: xml.Name{Local: "name"}}); err != nil {
			return fmt.Errorf("encode document name: %w", err)
		}
	}

	styles, styleMap := SharedStyles()
	for _, s := range styles {
		if err := e.enc.Encode(s); err != nil {
			return fmt.Errorf("encode style %s: %w", s.ID, err)
		}
	}
	if err := e.enc.Encode(styleMap); err != nil {
		return fmt.Errorf("encode style map: %w", err)
	}
	return e.enc.Flush()
}

// Encode appends one placemark, beginning the document if needed.
func (e *Encoder) Encode(p Placemark) error {
	if e.closed {
		return ErrEncoderClosed
	}
	if !e.started {
		if err := e.Begin(""); err != nil {
			return err
		}
	}
	if err := e.enc.Encode(p); err != nil {
		return fmt.Errorf("encode placemark %s: %w", p.Name, err)
	}
	e.count++
	return e.enc.Flush()
}

// Count returns the number of placemarks written so far.
func (e *Encoder) Count() int {
	return e.count
}

// Close ends the document. An encoder that never began still produces a
// valid, empty document.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	if !e.started {
		if err := e.Begin(""); err != nil {
			return err
		}
	}
	e.closed = true

	if err := e.enc.EncodeToken(xml.EndElement{Name: documentElement}); err != nil {
		return fmt.Errorf("close document element: %w", err)
	}
	if err := e.enc.EncodeToken(xml.EndElement{Name: kmlElement}); err != nil {
		return fmt.Errorf("close kml element: %w", err)
	}
	if err := e.enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, "\n")
	return err
}

// WriteDocument writes a complete document holding the given placemarks.
func WriteDocument(w io.Writer, name string, placemarks []Placemark) error {
	enc := NewEncoder(w)
	if err := enc.Begin(name); err != nil {
		return err
	}
	for _, p := range placemarks {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return enc.Close()
}
