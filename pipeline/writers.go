package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/astrokml/kml"
	"github.com/aluiziolira/astrokml/models"
)

// fileSink is the buffered output file shared by every writer.
type fileSink struct {
	kind string
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
}

func openSink(filename, kind string) (*fileSink, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", kind, err)
	}
	return &fileSink{kind: kind, file: f, buf: bufio.NewWriter(f)}, nil
}

func (s *fileSink) flush() error {
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s writer: %w", s.kind, err)
	}
	return nil
}

// close flushes then closes the file, closing it even when the flush fails.
func (s *fileSink) close() error {
	if err := s.flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// Validate ensures the output file has content.
func (s *fileSink) Validate() error {
	info, err := os.Stat(s.file.Name())
	if err != nil {
		return fmt.Errorf("stat %s file: %w", s.kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", s.kind)
	}
	return nil
}

// KMLWriter streams placemarks into a single KML document.
type KMLWriter struct {
	*fileSink
	encoder *kml.Encoder
}

// NewKMLWriter creates filename and writes the document header.
func NewKMLWriter(filename, name string) (*KMLWriter, error) {
	sink, err := openSink(filename, "kml")
	if err != nil {
		return nil, err
	}
	encoder := kml.NewEncoder(sink.buf)
	if err := encoder.Begin(name); err != nil {
		sink.file.Close()
		return nil, fmt.Errorf("write kml header: %w", err)
	}
	return &KMLWriter{fileSink: sink, encoder: encoder}, nil
}

// Write appends one placemark per attribute set.
func (kw *KMLWriter) Write(sets []models.AttributeSet) error {
	kw.mu.Lock()
	defer kw.mu.Unlock()

	for _, attrs := range sets {
		p, err := kml.NewPlacemark(attrs)
		if err != nil {
			return fmt.Errorf("build placemark %s: %w", attrs.MRF, err)
		}
		if err := kw.encoder.Encode(p); err != nil {
			return err
		}
	}
	return kw.flush()
}

// Close writes the document footer and closes the file handle.
func (kw *KMLWriter) Close() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()

	if err := kw.encoder.Close(); err != nil {
		kw.file.Close()
		return fmt.Errorf("close kml document: %w", err)
	}
	return kw.close()
}

// CSVWriter writes attribute sets as CSV rows under an attribute-name header.
type CSVWriter struct {
	*fileSink
	rows *csv.Writer
}

// NewCSVWriter creates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	sink, err := openSink(filename, "csv")
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{fileSink: sink, rows: csv.NewWriter(sink.buf)}
	if err := cw.writeRows([][]string{models.AttributeNames}); err != nil {
		sink.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

// Write appends one row per attribute set.
func (cw *CSVWriter) Write(sets []models.AttributeSet) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	rows := make([][]string, len(sets))
	for i, attrs := range sets {
		rows[i] = attrs.Values()
	}
	return cw.writeRows(rows)
}

func (cw *CSVWriter) writeRows(rows [][]string) error {
	if err := cw.rows.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return cw.flush()
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.close()
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	*fileSink
	encoder *json.Encoder
}

// NewJSONWriter creates filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	sink, err := openSink(filename, "json")
	if err != nil {
		return nil, err
	}
	return &JSONWriter{fileSink: sink, encoder: json.NewEncoder(sink.buf)}, nil
}

// Write appends attribute sets in JSONL format.
func (jw *JSONWriter) Write(sets []models.AttributeSet) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, attrs := range sets {
		if err := jw.encoder.Encode(attrs); err != nil {
			return fmt.Errorf("encode json record %s: %w", attrs.MRF, err)
		}
	}
	return jw.flush()
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
