package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

var DefaultFallbackModels = []string{"gemini-1.5-flash", "gemini-1.5-pro"}

type ModelCatalogUseCase struct {
	registry ports.ModelRegistry
	fallback []domain.ModelDescriptor
}

// NewModelCatalogUseCase keeps the configured fallback only when it yields at least two models.
func NewModelCatalogUseCase(registry ports.ModelRegistry, fallbackIDs []string) *ModelCatalogUseCase {
	fallback := descriptorsFrom(fallbackIDs)
	if len(fallback) < 2 {
		fallback = descriptorsFrom(DefaultFallbackModels)
	}
	return &ModelCatalogUseCase{
		registry: registry,
		fallback: fallback,
	}
}

// Resolve lists live models, or the fallback catalog when the registry cannot help.
// Registry failures never reach the caller.
func (uc *ModelCatalogUseCase) Resolve(ctx context.Context, apiKey string) domain.ModelCatalog {
	models, err := uc.live(ctx, apiKey)
	if err != nil {
		slog.Warn("model_catalog_fallback", "error", err, "models", len(uc.fallback))
		return uc.Fallback()
	}
	return domain.ModelCatalog{Models: models, Source: domain.CatalogLive}
}

func (uc *ModelCatalogUseCase) Fallback() domain.ModelCatalog {
	models := make([]domain.ModelDescriptor, len(uc.fallback))
	copy(models, uc.fallback)
	return domain.ModelCatalog{Models: models, Source: domain.CatalogFallback}
}

func (uc *ModelCatalogUseCase) live(ctx context.Context, apiKey string) ([]domain.ModelDescriptor, error) {
	if uc.registry == nil {
		return nil, domain.WrapError(domain.ErrModelCatalogUnavailable, "list models", errors.New("no registry configured"))
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrModelCatalogUnavailable, "list models", errors.New("api key is empty"))
	}

	remote, err := uc.registry.ListModels(ctx, apiKey)
	if err != nil {
		return nil, domain.WrapError(domain.ErrModelCatalogUnavailable, "list models", err)
	}

	models := filterGenerationModels(remote)
	if len(models) == 0 {
		return nil, domain.WrapError(domain.ErrModelCatalogUnavailable, "list models", errors.New("no generation-capable models"))
	}
	return models, nil
}

// filterGenerationModels keeps generateContent-capable entries, sorted descending as text.
func filterGenerationModels(remote []domain.RemoteModel) []domain.ModelDescriptor {
	seen := make(map[domain.ModelDescriptor]struct{}, len(remote))
	out := make([]domain.ModelDescriptor, 0, len(remote))
	for _, m := range remote {
		if !m.SupportsGeneration() {
			continue
		}
		desc, err := domain.NewModelDescriptor(m.Name)
		if err != nil {
			continue
		}
		if _, ok := seen[desc]; ok {
			continue
		}
		seen[desc] = struct{}{}
		out = append(out, desc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID() > out[j].ID()
	})
	return out
}

func descriptorsFrom(ids []string) []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, 0, len(ids))
	seen := make(map[domain.ModelDescriptor]struct{}, len(ids))
	for _, id := range ids {
		desc, err := domain.NewModelDescriptor(id)
		if err != nil {
			continue
		}
		if _, ok := seen[desc]; ok {
			continue
		}
		seen[desc] = struct{}{}
		out = append(out, desc)
	}
	return out
}
