package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/astrokml/models"
)

// ValidateRecord ensures the extractor captured every identifier.
func ValidateRecord(r models.Record) error {
	if r.Mission == "" {
		return fmt.Errorf("record missing mission")
	}
	if r.Roll == "" {
		return fmt.Errorf("record missing roll for mission %s", r.Mission)
	}
	if r.Frame == "" {
		return fmt.Errorf("record missing frame for %s-%s", r.Mission, r.Roll)
	}
	if r.Page < 1 {
		return fmt.Errorf("record %s has invalid page %d", r.Key(), r.Page)
	}
	return nil
}

// NormalizeIdentifier removes the padding spaces the results table puts
// inside mission, roll and frame cells.
func NormalizeIdentifier(text string) string {
	return strings.ReplaceAll(text, " ", "")
}

// SplitLines splits a fetched document into lines without terminators.
func SplitLines(body string) []string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
