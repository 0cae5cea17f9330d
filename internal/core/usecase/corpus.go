package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

type AssembleCorpusUseCase struct {
	extractor ports.TextExtractor
}

func NewAssembleCorpusUseCase(extractor ports.TextExtractor) *AssembleCorpusUseCase {
	return &AssembleCorpusUseCase{extractor: extractor}
}

// Assemble extracts every document in upload order. A failed document is reported
// and skipped; its siblings are still processed.
func (uc *AssembleCorpusUseCase) Assemble(
	ctx context.Context,
	docs []domain.Document,
) (domain.Corpus, []domain.ExtractionResult, []domain.FailureReport) {
	corpus := domain.Corpus{Blocks: make([]domain.CorpusBlock, 0, len(docs))}
	results := make([]domain.ExtractionResult, 0, len(docs))
	failures := make([]domain.FailureReport, 0)

	for _, doc := range docs {
		result := uc.extract(ctx, doc)
		results = append(results, result)
		if result.Failed {
			slog.Warn("document_extraction_failed", "document", doc.Name, "reason", result.Reason)
			failures = append(failures, domain.FailureReport{Name: doc.Name, Reason: result.Reason})
			continue
		}
		corpus.Blocks = append(corpus.Blocks, domain.CorpusBlock{Name: doc.Name, Text: result.Text()})
	}

	return corpus, results, failures
}

func (uc *AssembleCorpusUseCase) extract(ctx context.Context, doc domain.Document) (result domain.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.ExtractionFailure(doc.Name, domain.WrapError(domain.ErrDocumentDecode, "extract text", fmt.Errorf("decoder panic: %v", r)))
		}
	}()

	pages, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		if !domain.IsKind(err, domain.ErrDocumentDecode) {
			err = domain.WrapError(domain.ErrDocumentDecode, "extract text", err)
		}
		return domain.ExtractionFailure(doc.Name, err)
	}
	return domain.ExtractionSuccess(doc.Name, pages)
}
