package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/astrokml/internal/fixtures"
	"github.com/aluiziolira/astrokml/kml"
	"github.com/aluiziolira/astrokml/models"
	"github.com/aluiziolira/astrokml/parser"
)

func fixtureSet(t *testing.T) models.AttributeSet {
	t.Helper()
	attrs, _, err := parser.ParsePlacemark(parser.SplitLines(fixtures.Placemark))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return attrs
}

func TestKMLWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "photos.kml")

	writer, err := NewKMLWriter(path, "Gulf coast")
	if err != nil {
		t.Fatalf("create kml writer: %v", err)
	}

	first := fixtureSet(t)
	second := first
	second.MRF = "ISS017-E-17189"
	if err := writer.Write([]models.AttributeSet{first}); err != nil {
		t.Fatalf("write kml: %v", err)
	}
	if err := writer.Write([]models.AttributeSet{second}); err != nil {
		t.Fatalf("write kml: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate kml: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close kml: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read kml: %v", err)
	}
	var doc struct {
		Document struct {
			Name       string          `xml:"name"`
			Placemarks []kml.Placemark `xml:"Placemark"`
		} `xml:"Document"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode kml: %v", err)
	}
	if doc.Document.Name != "Gulf coast" {
		t.Fatalf("name=%q", doc.Document.Name)
	}
	if len(doc.Document.Placemarks) != 2 {
		t.Fatalf("placemarks=%d, want 2", len(doc.Document.Placemarks))
	}
	if doc.Document.Placemarks[0].Name != first.MRF || doc.Document.Placemarks[1].Name != second.MRF {
		t.Fatalf("placemark order: %s, %s", doc.Document.Placemarks[0].Name, doc.Document.Placemarks[1].Name)
	}
	if strings.Count(string(data), "<StyleMap") != 1 {
		t.Fatalf("style map should be written once")
	}
}

func TestKMLWriterEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.kml")

	writer, err := NewKMLWriter(path, "")
	if err != nil {
		t.Fatalf("create kml writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close kml: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read kml: %v", err)
	}
	if !strings.Contains(string(data), "</Document>") {
		t.Fatalf("document not closed: %s", data)
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photos.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	attrs := fixtureSet(t)
	if err := writer.Write([]models.AttributeSet{attrs}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != models.AttrMRF || records[0][len(records[0])-1] != models.AttrDBEntry {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != fixtures.PlacemarkMRF || records[1][4] != fixtures.PlacemarkLongitude {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photos.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	attrs := fixtureSet(t)
	if err := writer.Write([]models.AttributeSet{attrs, attrs}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var decoded models.AttributeSet
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("decode line %d: %v", lines+1, err)
		}
		if decoded != attrs {
			t.Fatalf("line %d = %+v, want %+v", lines+1, decoded, attrs)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("lines=%d, want 2", lines)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	kmlPath := filepath.Join(dir, "photos.kml")

	w, err := NewWriter("dual", kmlPath, "")
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}

	if err := w.Write([]models.AttributeSet{fixtureSet(t)}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	for _, path := range []string{kmlPath, filepath.Join(dir, "photos.jsonl")} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	if _, err := NewWriter("xlsx", filepath.Join(t.TempDir(), "out.xlsx"), ""); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestSidecarPath(t *testing.T) {
	tests := map[string]string{
		"out/photos.kml": "out/photos.jsonl",
		"photos":         "photos.jsonl",
	}
	for in, want := range tests {
		if got := SidecarPath(in, ".jsonl"); got != want {
			t.Fatalf("SidecarPath(%q) = %q, want %q", in, got, want)
		}
	}
}
