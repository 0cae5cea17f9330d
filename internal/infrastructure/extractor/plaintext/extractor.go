package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

const pageBreak = "\f"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract treats form feeds as page breaks.
func (e *Extractor) Extract(_ context.Context, doc domain.Document) ([]string, error) {
	if !utf8.Valid(doc.Data) {
		return nil, domain.WrapError(domain.ErrDocumentDecode, "decode text", errors.New("unsupported binary format: "+doc.Name))
	}

	text := strings.TrimSpace(string(doc.Data))
	if text == "" {
		return []string{}, nil
	}
	pages := strings.Split(text, pageBreak)
	for i := range pages {
		pages[i] = strings.TrimSpace(pages[i])
	}
	return pages, nil
}
