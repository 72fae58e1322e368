// Package pdftext turns an uploaded PDF into raw text.
//
// The contract is deliberately narrow: bytes in, text out, or a typed
// failure. ErrFileNotFound means the path does not exist; ErrExtractionFailed
// means the file exists but could not be read (corrupt, encrypted,
// unsupported). A well-formed PDF with no extractable text yields "" and a
// nil error so callers can distinguish "no text" from "unreadable".
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrFileNotFound indicates the path does not exist.
	ErrFileNotFound = errors.New("pdf file not found")
	// ErrExtractionFailed indicates the file exists but is unreadable.
	ErrExtractionFailed = errors.New("pdf extraction failed")
)

// Extractor converts a PDF file into raw text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PDFCPUExtractor extracts text with pdfcpu: validate the document, dump the
// decoded page content streams, then scrape the text-showing operators.
type PDFCPUExtractor struct {
	conf *model.Configuration
}

// New creates a PDFCPUExtractor with relaxed validation (real bank statements
// frequently violate strict PDF conformance).
func New() *PDFCPUExtractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUExtractor{conf: conf}
}

// Extract implements Extractor.
func (e *PDFCPUExtractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	if err := api.ValidateFile(path, e.conf); err != nil {
		return "", fmt.Errorf("%w: validate: %v", ErrExtractionFailed, err)
	}

	outDir, err := os.MkdirTemp("", "finhub-pdftext-*")
	if err != nil {
		return "", fmt.Errorf("%w: temp dir: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(path, outDir, nil, e.conf); err != nil {
		return "", fmt.Errorf("%w: extract content: %v", ErrExtractionFailed, err)
	}

	var pages []string
	err = filepath.WalkDir(outDir, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		raw, readErr := os.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		if text := scrapeText(string(raw)); text != "" {
			pages = append(pages, text)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: read content: %v", ErrExtractionFailed, err)
	}

	return strings.Join(pages, "\n"), nil
}

// scrapeText pulls the literal strings out of a decoded PDF content stream.
// It only handles parenthesized literals (the form layout-based statements
// use); positioning operators between literals become whitespace.
func scrapeText(content string) string {
	var b strings.Builder
	depth := 0
	escaped := false

	for i := 0; i < len(content); i++ {
		c := content[i]

		if depth == 0 {
			if c == '(' {
				depth = 1
			} else if c == '\n' && b.Len() > 0 {
				// Operator boundary between text runs.
				if last := b.String(); !strings.HasSuffix(last, "\n") && !strings.HasSuffix(last, " ") {
					b.WriteByte(' ')
				}
			}
			continue
		}

		if escaped {
			switch c {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r', 'f', 'b':
				b.WriteByte(' ')
			default:
				// Covers \( \) \\ and keeps octal escapes readable enough.
				b.WriteByte(c)
			}
			escaped = false
			continue
		}

		switch c {
		case '\\':
			escaped = true
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth > 0 {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}

	return strings.TrimSpace(b.String())
}
