package dispatch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

type Format string

const (
	FormatPDF         Format = "pdf"
	FormatSpreadsheet Format = "xlsx"
	FormatText        Format = "text"
	FormatUnknown     Format = ""
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Extractor picks a format-specific extractor by file extension, then by content.
type Extractor struct {
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
	text        ports.TextExtractor
}

func NewExtractor(pdf, spreadsheet, text ports.TextExtractor) *Extractor {
	return &Extractor{pdf: pdf, spreadsheet: spreadsheet, text: text}
}

func (e *Extractor) Extract(ctx context.Context, doc domain.Document) ([]string, error) {
	var target ports.TextExtractor
	switch DetectFormat(doc) {
	case FormatPDF:
		target = e.pdf
	case FormatSpreadsheet:
		target = e.spreadsheet
	case FormatText:
		target = e.text
	}
	if target == nil {
		return nil, domain.WrapError(domain.ErrDocumentDecode, "detect format", errors.New("unsupported document format: "+doc.Name))
	}
	return target.Extract(ctx, doc)
}

func DetectFormat(doc domain.Document) Format {
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return FormatPDF
	case ".xlsx", ".xlsm":
		return FormatSpreadsheet
	case ".txt", ".md", ".csv":
		return FormatText
	}

	switch {
	case bytes.HasPrefix(doc.Data, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(doc.Data, zipMagic):
		return FormatSpreadsheet
	case utf8.Valid(doc.Data):
		return FormatText
	default:
		return FormatUnknown
	}
}
