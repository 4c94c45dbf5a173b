package parser

import (
	"testing"

	"github.com/aluiziolira/astrokml/models"
	"github.com/google/go-cmp/cmp"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  models.Record
		wantErr bool
	}{
		{
			name:    "valid record",
			record:  models.Record{Mission: "ISS017", Roll: "E", Frame: "17188", Page: 1},
			wantErr: false,
		},
		{
			name:    "missing mission",
			record:  models.Record{Roll: "E", Frame: "17188", Page: 1},
			wantErr: true,
		},
		{
			name:    "missing roll",
			record:  models.Record{Mission: "ISS017", Frame: "17188", Page: 1},
			wantErr: true,
		},
		{
			name:    "missing frame",
			record:  models.Record{Mission: "ISS017", Roll: "E", Page: 1},
			wantErr: true,
		},
		{
			name:    "page zero",
			record:  models.Record{Mission: "ISS017", Roll: "E", Frame: "17188"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ISS017", "ISS017"},
		{" STS 61A ", "STS61A"},
		{"1 2 3", "123"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeIdentifier(tt.input); got != tt.expected {
				t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "unix", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "crlf", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "no trailing newline", input: "a\nb", want: []string{"a", "b"}},
		{name: "blank lines kept", input: "a\n\nb\n", want: []string{"a", "", "b"}},
		{name: "empty", input: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLines(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitLines() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
