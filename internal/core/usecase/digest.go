package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

type DigestUseCase struct {
	corpus          *AssembleCorpusUseCase
	catalog         ports.ModelCatalogResolver
	generate        *GenerateUseCase
	notifier        ports.DigestNotifier
	defaultTemplate domain.PromptTemplate
	now             func() time.Time
}

func NewDigestUseCase(
	corpus *AssembleCorpusUseCase,
	catalog ports.ModelCatalogResolver,
	generate *GenerateUseCase,
	notifier ports.DigestNotifier,
	defaultTemplate domain.PromptTemplate,
) *DigestUseCase {
	return &DigestUseCase{
		corpus:          corpus,
		catalog:         catalog,
		generate:        generate,
		notifier:        notifier,
		defaultTemplate: defaultTemplate,
		now:             time.Now,
	}
}

// BuildPrompt runs extraction and prompt assembly and stops before generation.
func (uc *DigestUseCase) BuildPrompt(ctx context.Context, req domain.DigestRequest) (*domain.DigestRun, error) {
	if len(req.Documents) == 0 {
		return nil, domain.WrapError(domain.ErrPrecondition, "build prompt", errors.New("no documents uploaded"))
	}

	run := domain.NewDigestRun()
	if err := run.Advance(domain.StageDocumentsLoaded); err != nil {
		return nil, err
	}

	corpus, results, failures := uc.corpus.Assemble(ctx, req.Documents)
	run.Corpus = corpus
	run.Results = results
	run.Failures = failures
	if err := run.Advance(domain.StageCorpusAssembled); err != nil {
		return nil, err
	}

	run.Prompt = AssemblePrompt(uc.template(req.Template), uc.reportDate(req.Date), corpus)
	if err := run.Advance(domain.StagePromptAssembled); err != nil {
		return nil, err
	}
	return run, nil
}

// Generate runs the full pipeline. A generation failure is reported in the run outcome,
// the returned error is reserved for unmet preconditions.
func (uc *DigestUseCase) Generate(ctx context.Context, req domain.DigestRequest) (*domain.DigestRun, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrPrecondition, "generate", errors.New("api key is not configured"))
	}

	run, err := uc.BuildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model.IsZero() {
		model = uc.catalog.Resolve(ctx, req.APIKey).Default()
	}

	if err := run.Advance(domain.StageGenerating); err != nil {
		return nil, err
	}
	outcome := uc.generate.Invoke(ctx, run.Prompt, model, req.APIKey)
	run.Outcome = &outcome

	next := domain.StageCompleted
	if outcome.Failed {
		next = domain.StageFailed
	}
	if err := run.Advance(next); err != nil {
		return nil, err
	}

	uc.notify(ctx, run, model)
	return run, nil
}

func (uc *DigestUseCase) template(tpl domain.PromptTemplate) domain.PromptTemplate {
	if tpl.Content == "" {
		return uc.defaultTemplate
	}
	return tpl
}

func (uc *DigestUseCase) reportDate(date time.Time) time.Time {
	if date.IsZero() {
		return uc.now()
	}
	return date
}

func (uc *DigestUseCase) notify(ctx context.Context, run *domain.DigestRun, model domain.ModelDescriptor) {
	if uc.notifier == nil {
		return
	}
	event := domain.DigestEvent{
		ID:          uuid.NewString(),
		Model:       model.ID(),
		Documents:   len(run.Results),
		Failures:    len(run.Failures),
		PromptChars: len([]rune(run.Prompt.Text())),
		Stage:       run.Stage,
		OccurredAt:  uc.now().UTC(),
	}
	if run.Outcome != nil {
		event.Kind = run.Outcome.Kind
	}
	if err := uc.notifier.PublishDigestGenerated(ctx, event); err != nil {
		slog.Warn("digest_notification_failed", "event_id", event.ID, "error", err)
	}
}
