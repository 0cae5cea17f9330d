package domain

import "strings"

// Document is one uploaded file. It is discarded once its text has been extracted.
type Document struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// ExtractionResult is either a success carrying text or a failure carrying a reason.
type ExtractionResult struct {
	Name   string   `json:"name"`
	Pages  []string `json:"-"`
	Reason string   `json:"reason,omitempty"`
	Failed bool     `json:"failed"`
}

func ExtractionSuccess(name string, pages []string) ExtractionResult {
	if pages == nil {
		pages = []string{}
	}
	return ExtractionResult{Name: name, Pages: pages}
}

func ExtractionFailure(name string, err error) ExtractionResult {
	reason := "unknown decode error"
	if err != nil {
		reason = err.Error()
	}
	return ExtractionResult{Name: name, Reason: reason, Failed: true}
}

// Text joins pages in physical order with a single newline between them.
func (r ExtractionResult) Text() string {
	return strings.Join(r.Pages, "\n")
}

// FailureReport names a document that could not be decoded.
type FailureReport struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type CorpusBlock struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Corpus holds successfully extracted documents in upload order.
type Corpus struct {
	Blocks []CorpusBlock `json:"blocks"`
}

func (c Corpus) Len() int {
	return len(c.Blocks)
}

// Text renders every block with its delimiting label.
func (c Corpus) Text() string {
	var b strings.Builder
	for _, block := range c.Blocks {
		b.WriteString(RenderCorpusBlock(block))
	}
	return b.String()
}

func RenderCorpusBlock(block CorpusBlock) string {
	return "\n\n=== " + block.Name + " ===\n" + block.Text + "\n"
}
