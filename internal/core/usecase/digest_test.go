package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

func newDigestForTest(gen *generatorFake, catalog *catalogFake, notifier ports.DigestNotifier) *DigestUseCase {
	uc := NewDigestUseCase(
		NewAssembleCorpusUseCase(&pageExtractorFake{}),
		catalog,
		NewGenerateUseCase(gen),
		notifier,
		domain.PromptTemplate{Name: "default", Content: "Digest for {date}"},
	)
	uc.now = func() time.Time { return time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC) }
	return uc
}

func fallbackCatalog() *catalogFake {
	return &catalogFake{catalog: NewModelCatalogUseCase(nil, nil).Fallback()}
}

func TestGenerateEndToEndWithOneUndecodableDocument(t *testing.T) {
	gen := &generatorFake{text: "RESULT"}
	notifier := &notifierFake{}
	uc := newDigestForTest(gen, fallbackCatalog(), notifier)

	run, err := uc.Generate(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{
			{Name: "good.pdf", Data: []byte("Foo")},
			{Name: "broken.pdf", Data: []byte("BAD")},
		},
		Date:     time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Template: domain.PromptTemplate{Content: "Hello {date}."},
		Model:    domain.MustModelDescriptor("gemini-1.5-pro"),
		APIKey:   "key-1",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	block := "\n\n=== good.pdf ===\nFoo\n"
	if run.Corpus.Text() != block {
		t.Fatalf("unexpected corpus: %q", run.Corpus.Text())
	}
	if len(run.Failures) != 1 || run.Failures[0].Name != "broken.pdf" {
		t.Fatalf("expected one failure for broken.pdf, got %+v", run.Failures)
	}
	if !strings.Contains(run.Prompt.Text(), block) || !strings.HasPrefix(run.Prompt.Text(), "Hello 2024年03月05日.") {
		t.Fatalf("unexpected prompt: %q", run.Prompt.Text())
	}
	if gen.lastPrompt != run.Prompt.Text() {
		t.Fatalf("generator received a different prompt")
	}
	if run.Outcome == nil || run.Outcome.Failed || run.Outcome.Content != "RESULT" {
		t.Fatalf("expected Text(RESULT), got %+v", run.Outcome)
	}
	if run.Stage != domain.StageCompleted {
		t.Fatalf("expected completed stage, got %s", run.Stage)
	}
	if len(notifier.events) != 1 || notifier.events[0].Failures != 1 || notifier.events[0].Documents != 2 {
		t.Fatalf("unexpected notifications: %+v", notifier.events)
	}
}

func TestGenerateSurfacesAuthenticationFailure(t *testing.T) {
	gen := &generatorFake{err: domain.WrapError(domain.ErrUnauthorized, "gemini generate", errors.New("API key not valid"))}
	notifier := &notifierFake{}
	uc := newDigestForTest(gen, fallbackCatalog(), notifier)

	run, err := uc.Generate(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{{Name: "a.pdf", Data: []byte("Foo")}},
		Model:     domain.MustModelDescriptor("gemini-1.5-pro"),
		APIKey:    "bad",
	})
	if err != nil {
		t.Fatalf("generation failure must not be returned as error, got %v", err)
	}
	if run.Stage != domain.StageFailed {
		t.Fatalf("expected failed stage, got %s", run.Stage)
	}
	if !run.Outcome.Failed || !strings.Contains(run.Outcome.Message, "API key not valid") {
		t.Fatalf("expected auth description in outcome, got %+v", run.Outcome)
	}
	if notifier.events[0].Kind != domain.FailureUnauthorized || notifier.events[0].Stage != domain.StageFailed {
		t.Fatalf("unexpected notification: %+v", notifier.events[0])
	}
}

func TestGenerateFailsOnEmptySafetyFinishedCandidate(t *testing.T) {
	gen := &generatorFake{err: domain.WrapError(domain.ErrInvalidInput, "generate content", errors.New("candidate has no content: finishReason=SAFETY"))}
	uc := newDigestForTest(gen, fallbackCatalog(), nil)

	run, err := uc.Generate(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{{Name: "a.pdf", Data: []byte("Foo")}},
		Model:     domain.MustModelDescriptor("gemini-1.5-pro"),
		APIKey:    "key-1",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if run.Stage != domain.StageFailed {
		t.Fatalf("expected failed stage, got %s", run.Stage)
	}
	if run.Outcome.Content != "" || run.Outcome.Kind != domain.FailureInvalidRequest || !strings.Contains(run.Outcome.Message, "SAFETY") {
		t.Fatalf("unexpected outcome: %+v", run.Outcome)
	}
}

func TestGenerateUsesCatalogDefaultWhenNoModelChosen(t *testing.T) {
	gen := &generatorFake{text: "ok"}
	catalog := fallbackCatalog()
	uc := newDigestForTest(gen, catalog, nil)

	run, err := uc.Generate(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{{Name: "a.pdf", Data: []byte("Foo")}},
		APIKey:    "k",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if catalog.calls != 1 || gen.lastModel.ID() != DefaultFallbackModels[0] {
		t.Fatalf("expected catalog default model, got %s after %d resolutions", gen.lastModel, catalog.calls)
	}
	if run.Outcome.Model != DefaultFallbackModels[0] {
		t.Fatalf("unexpected outcome model: %s", run.Outcome.Model)
	}
}

func TestGenerateRequiresDocumentsAndKey(t *testing.T) {
	gen := &generatorFake{text: "ok"}
	uc := newDigestForTest(gen, fallbackCatalog(), nil)

	_, err := uc.Generate(context.Background(), domain.DigestRequest{APIKey: "k"})
	if !domain.IsKind(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error without documents, got %v", err)
	}
	_, err = uc.Generate(context.Background(), domain.DigestRequest{Documents: []domain.Document{{Name: "a.pdf", Data: []byte("x")}}})
	if !domain.IsKind(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error without key, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not run when preconditions fail")
	}
}

func TestGenerateProceedsWhenEveryDocumentFails(t *testing.T) {
	gen := &generatorFake{text: "ok"}
	uc := newDigestForTest(gen, fallbackCatalog(), nil)

	run, err := uc.Generate(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{{Name: "a.pdf", Data: []byte("BAD")}, {Name: "b.pdf", Data: []byte("BAD")}},
		Model:     domain.MustModelDescriptor("m"),
		APIKey:    "k",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if run.Corpus.Len() != 0 || len(run.Failures) != 2 {
		t.Fatalf("expected empty corpus with two failures, got %d blocks, %d failures", run.Corpus.Len(), len(run.Failures))
	}
	if gen.calls != 1 || !strings.HasSuffix(gen.lastPrompt, domain.CorpusSeparator) {
		t.Fatalf("expected generation with empty corpus, prompt %q", gen.lastPrompt)
	}
}

func TestBuildPromptStopsBeforeGeneration(t *testing.T) {
	gen := &generatorFake{text: "ok"}
	uc := newDigestForTest(gen, fallbackCatalog(), nil)

	run, err := uc.BuildPrompt(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{{Name: "a.pdf", Data: []byte("Foo")}},
	})
	if err != nil {
		t.Fatalf("BuildPrompt() error = %v", err)
	}
	if run.Stage != domain.StagePromptAssembled || run.Outcome != nil {
		t.Fatalf("unexpected run: stage=%s outcome=%+v", run.Stage, run.Outcome)
	}
	if !strings.HasPrefix(run.Prompt.Text(), "Digest for 2025年01月02日") {
		t.Fatalf("expected default template and current date, got %q", run.Prompt.Text())
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not be called")
	}
}

func TestBuildPromptRequiresDocuments(t *testing.T) {
	uc := newDigestForTest(&generatorFake{}, fallbackCatalog(), nil)
	if _, err := uc.BuildPrompt(context.Background(), domain.DigestRequest{}); !domain.IsKind(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestGenerateIgnoresNotifierFailure(t *testing.T) {
	notifier := &notifierFake{err: errors.New("nats: no servers available for connection")}
	uc := newDigestForTest(&generatorFake{text: "ok"}, fallbackCatalog(), notifier)

	run, err := uc.Generate(context.Background(), domain.DigestRequest{
		Documents: []domain.Document{{Name: "a.pdf", Data: []byte("Foo")}},
		Model:     domain.MustModelDescriptor("m"),
		APIKey:    "k",
	})
	if err != nil || run.Stage != domain.StageCompleted {
		t.Fatalf("expected completed run despite notifier failure, got %v / %+v", err, run)
	}
}
