package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

type GenerateUseCase struct {
	generator ports.ContentGenerator
}

func NewGenerateUseCase(generator ports.ContentGenerator) *GenerateUseCase {
	return &GenerateUseCase{generator: generator}
}

// Invoke performs one generation call. Every failure is returned inside the outcome.
func (uc *GenerateUseCase) Invoke(
	ctx context.Context,
	prompt domain.AssembledPrompt,
	model domain.ModelDescriptor,
	apiKey string,
) (outcome domain.GenerationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.GenerationError(model, fmt.Errorf("generate content: generator panic: %v", r))
		}
	}()

	if model.IsZero() {
		return domain.GenerationError(model, domain.WrapError(domain.ErrInvalidInput, "generate content", errors.New("model is required")))
	}
	if strings.TrimSpace(apiKey) == "" {
		return domain.GenerationError(model, domain.WrapError(domain.ErrUnauthorized, "generate content", errors.New("api key is empty")))
	}

	text, err := uc.generator.GenerateContent(ctx, apiKey, model, prompt.Text())
	if err != nil {
		slog.Error("generation_failed", "model", model.ID(), "kind", domain.ClassifyFailure(err), "error", err)
		return domain.GenerationError(model, err)
	}
	return domain.GenerationText(model, text)
}
