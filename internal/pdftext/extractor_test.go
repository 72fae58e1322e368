package pdftext

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestExtract_FileNotFound(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Extract on missing file: err = %v, want ErrFileNotFound", err)
	}
}

func TestScrapeText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "single literal",
			content: "BT /F1 12 Tf (HSBC Bank UK) Tj ET",
			want:    "HSBC Bank UK",
		},
		{
			name:    "escaped parens",
			content: "(Balance \\(GBP\\)) Tj",
			want:    "Balance (GBP)",
		},
		{
			name:    "escaped newline",
			content: "(Line one\\nLine two) Tj",
			want:    "Line one\nLine two",
		},
		{
			name:    "multiple runs separated by operators",
			content: "(TESCO STORES) Tj\n(12.50) Tj",
			want:    "TESCO STORES 12.50",
		},
		{
			name:    "no literals",
			content: "q 1 0 0 1 0 0 cm Q",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scrapeText(tt.content); got != tt.want {
				t.Errorf("scrapeText(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
