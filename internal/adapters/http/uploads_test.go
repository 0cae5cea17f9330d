package httpadapter

import (
	"testing"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

func TestDocumentStatusesPreferExtractedPageCount(t *testing.T) {
	uploads := []upload{
		{doc: domain.Document{Name: "statement.pdf", Data: []byte("%PDF-1.4")}, contentType: "application/pdf"},
		{doc: domain.Document{Name: "scan.pdf", Data: []byte("%PDF-1.4")}, contentType: "application/pdf"},
		{doc: domain.Document{Name: "broken.xlsx", Data: []byte("PK")}, contentType: "application/octet-stream"},
	}
	results := []domain.ExtractionResult{
		domain.ExtractionSuccess("statement.pdf", []string{"p1", "p2", "p3"}),
		{Name: "scan.pdf", Failed: true, Reason: "no text layer"},
		{Name: "broken.xlsx", Failed: true, Reason: "zip: not a valid zip file"},
	}

	var counted []string
	structural := func(name string, _ []byte, contentType string) *int {
		counted = append(counted, name)
		if contentType != "application/pdf" {
			return nil
		}
		n := 5
		return &n
	}

	statuses := documentStatuses(uploads, results, structural)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}

	if statuses[0].Status != "ok" || statuses[0].Pages == nil || *statuses[0].Pages != 3 {
		t.Fatalf("expected extracted count 3 for statement.pdf, got %+v", statuses[0])
	}
	if statuses[1].Status != "failed" || statuses[1].Reason != "no text layer" {
		t.Fatalf("unexpected scan.pdf status: %+v", statuses[1])
	}
	if statuses[1].Pages == nil || *statuses[1].Pages != 5 {
		t.Fatalf("expected structural count 5 for scan.pdf, got %+v", statuses[1].Pages)
	}
	if statuses[2].Pages != nil {
		t.Fatalf("expected no page count for broken.xlsx, got %d", *statuses[2].Pages)
	}

	if len(counted) != 2 || counted[0] != "scan.pdf" || counted[1] != "broken.xlsx" {
		t.Fatalf("structural count must run only for failed documents, ran for %v", counted)
	}
}

func TestExtractPDFPageCountSkipsNonPDF(t *testing.T) {
	if got := extractPDFPageCount("notes.txt", []byte("plain text"), "text/plain"); got != nil {
		t.Fatalf("expected nil for non-PDF upload, got %d", *got)
	}
	if got := extractPDFPageCount("fake.pdf", []byte("not a pdf at all"), "application/pdf"); got != nil {
		t.Fatalf("expected nil for unparseable PDF, got %d", *got)
	}
}
