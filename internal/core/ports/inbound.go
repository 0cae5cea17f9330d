package ports

import (
	"context"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

// ModelCatalogResolver offers generation-capable models for selection. It never fails.
type ModelCatalogResolver interface {
	Resolve(ctx context.Context, apiKey string) domain.ModelCatalog
}

// DigestService is the inbound contract for the prompt and generate actions.
type DigestService interface {
	BuildPrompt(ctx context.Context, req domain.DigestRequest) (*domain.DigestRun, error)
	Generate(ctx context.Context, req domain.DigestRequest) (*domain.DigestRun, error)
}

// TemplateService resolves the default and stored prompt templates.
type TemplateService interface {
	Default() domain.PromptTemplate
	Get(ctx context.Context, name string) (*domain.PromptTemplate, error)
	Save(ctx context.Context, tpl domain.PromptTemplate) error
}
