package ports

import (
	"context"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

// TextExtractor decodes one document into page texts in physical order.
type TextExtractor interface {
	Extract(ctx context.Context, doc domain.Document) ([]string, error)
}

// ModelRegistry lists every model the remote service exposes for the key.
type ModelRegistry interface {
	ListModels(ctx context.Context, apiKey string) ([]domain.RemoteModel, error)
}

// ContentGenerator issues exactly one blocking generation call.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, apiKey string, model domain.ModelDescriptor, prompt string) (string, error)
}

// TemplateStore persists named user templates.
type TemplateStore interface {
	GetTemplate(ctx context.Context, name string) (*domain.PromptTemplate, error)
	SaveTemplate(ctx context.Context, tpl domain.PromptTemplate) error
}

// DigestNotifier announces finished generate actions.
type DigestNotifier interface {
	PublishDigestGenerated(ctx context.Context, event domain.DigestEvent) error
}
