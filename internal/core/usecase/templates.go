package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

const DefaultTemplateName = "default"

var templateNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type TemplateUseCase struct {
	store           ports.TemplateStore
	defaultTemplate domain.PromptTemplate
}

// NewTemplateUseCase accepts a nil store; named templates are then unavailable.
func NewTemplateUseCase(store ports.TemplateStore, defaultContent string) *TemplateUseCase {
	if strings.TrimSpace(defaultContent) == "" {
		defaultContent = domain.DefaultTemplate
	}
	return &TemplateUseCase{
		store: store,
		defaultTemplate: domain.PromptTemplate{
			Name:    DefaultTemplateName,
			Content: defaultContent,
		},
	}
}

func (uc *TemplateUseCase) Default() domain.PromptTemplate {
	return uc.defaultTemplate
}

func (uc *TemplateUseCase) Get(ctx context.Context, name string) (*domain.PromptTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultTemplateName {
		tpl := uc.defaultTemplate
		return &tpl, nil
	}
	if uc.store == nil {
		return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", fmt.Errorf("name=%s", name))
	}
	tpl, err := uc.store.GetTemplate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

func (uc *TemplateUseCase) Save(ctx context.Context, tpl domain.PromptTemplate) error {
	if !templateNamePattern.MatchString(tpl.Name) || tpl.Name == DefaultTemplateName {
		return domain.WrapError(domain.ErrInvalidInput, "save template", fmt.Errorf("invalid template name %q", tpl.Name))
	}
	if strings.TrimSpace(tpl.Content) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save template", errors.New("template content is empty"))
	}
	if uc.store == nil {
		return domain.WrapError(domain.ErrPrecondition, "save template", errors.New("template store is not configured"))
	}
	if err := uc.store.SaveTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}
