package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/astrokml/models"
)

// DualWriter outputs the KML document and a JSONL sidecar together.
type DualWriter struct {
	kmlWriter  *KMLWriter
	jsonWriter *JSONWriter
	mu         sync.Mutex
}

// NewDualWriter creates both writers.
func NewDualWriter(kmlFilename, jsonFilename, name string) (*DualWriter, error) {
	kmlWriter, err := NewKMLWriter(kmlFilename, name)
	if err != nil {
		return nil, fmt.Errorf("create kml writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		kmlWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{
		kmlWriter:  kmlWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write writes attribute sets to both outputs.
func (dw *DualWriter) Write(sets []models.AttributeSet) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.kmlWriter.Write(sets); err != nil {
		return fmt.Errorf("kml write failed: %w", err)
	}
	if err := dw.jsonWriter.Write(sets); err != nil {
		return fmt.Errorf("json write failed: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.kmlWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kml close failed: %w", err))
	}
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("json close failed: %w", err))
	}
	return errors.Join(errs...)
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.kmlWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("kml validation failed: %w", err))
	}
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("json validation failed: %w", err))
	}
	return errors.Join(errs...)
}

// NewWriter builds the writer for format. Dual output places the JSONL
// sidecar next to filename.
func NewWriter(format, filename, name string) (OutputWriter, error) {
	var (
		w   OutputWriter
		err error
	)
	switch strings.ToLower(format) {
	case "", "kml":
		w, err = NewKMLWriter(filename, name)
	case "json":
		w, err = NewJSONWriter(filename)
	case "csv":
		w, err = NewCSVWriter(filename)
	case "dual":
		w, err = NewDualWriter(filename, SidecarPath(filename, ".jsonl"), name)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// SidecarPath swaps the extension of filename for ext.
func SidecarPath(filename, ext string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
}
