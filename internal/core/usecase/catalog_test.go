package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

func TestResolveFiltersStripsPrefixAndSortsDescending(t *testing.T) {
	registry := &registryFake{models: []domain.RemoteModel{
		{Name: "models/gemini-1.5-flash", SupportedGenerationMethods: []string{"generateContent", "countTokens"}},
		{Name: "models/embedding-001", SupportedGenerationMethods: []string{"embedContent"}},
		{Name: "models/gemini-2.0-flash", SupportedGenerationMethods: []string{"generateContent"}},
		{Name: "models/gemini-1.5-pro", SupportedGenerationMethods: []string{"generateContent"}},
	}}
	uc := NewModelCatalogUseCase(registry, nil)

	catalog := uc.Resolve(context.Background(), "key-1")
	if catalog.Source != domain.CatalogLive {
		t.Fatalf("expected live catalog, got %s", catalog.Source)
	}
	want := []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"}
	if !reflect.DeepEqual(catalog.IDs(), want) {
		t.Fatalf("unexpected catalog: %v, want %v", catalog.IDs(), want)
	}
	if catalog.Default().ID() != "gemini-2.0-flash" {
		t.Fatalf("unexpected default: %s", catalog.Default())
	}
	if registry.keys[0] != "key-1" {
		t.Fatalf("expected api key to be passed through, got %v", registry.keys)
	}
}

func TestResolveKeepsTextualOrderingForMultiDigitVersions(t *testing.T) {
	registry := &registryFake{models: []domain.RemoteModel{
		{Name: "models/gemini-10.0", SupportedGenerationMethods: []string{"generateContent"}},
		{Name: "models/gemini-9.0", SupportedGenerationMethods: []string{"generateContent"}},
	}}
	catalog := NewModelCatalogUseCase(registry, nil).Resolve(context.Background(), "k")

	want := []string{"gemini-9.0", "gemini-10.0"}
	if !reflect.DeepEqual(catalog.IDs(), want) {
		t.Fatalf("expected lexicographic order %v, got %v", want, catalog.IDs())
	}
}

func TestResolveFallsBackOnRegistryError(t *testing.T) {
	registry := &registryFake{err: domain.WrapError(domain.ErrUnauthorized, "list models", errors.New("API key not valid"))}
	catalog := NewModelCatalogUseCase(registry, nil).Resolve(context.Background(), "bad")

	if catalog.Source != domain.CatalogFallback {
		t.Fatalf("expected fallback catalog, got %s", catalog.Source)
	}
	if len(catalog.Models) < 2 {
		t.Fatalf("expected at least 2 fallback models, got %d", len(catalog.Models))
	}
	if !reflect.DeepEqual(catalog.IDs(), DefaultFallbackModels) {
		t.Fatalf("unexpected fallback: %v", catalog.IDs())
	}
}

func TestResolveFallsBackWhenNothingCanGenerate(t *testing.T) {
	registry := &registryFake{models: []domain.RemoteModel{
		{Name: "models/embedding-001", SupportedGenerationMethods: []string{"embedContent"}},
	}}
	catalog := NewModelCatalogUseCase(registry, nil).Resolve(context.Background(), "k")

	if catalog.Source != domain.CatalogFallback || len(catalog.Models) < 2 {
		t.Fatalf("expected fallback catalog, got %+v", catalog)
	}
}

func TestResolveFallsBackWithoutKeyAndSkipsRegistry(t *testing.T) {
	registry := &registryFake{}
	catalog := NewModelCatalogUseCase(registry, nil).Resolve(context.Background(), " ")

	if catalog.Source != domain.CatalogFallback {
		t.Fatalf("expected fallback catalog, got %s", catalog.Source)
	}
	if registry.calls != 0 {
		t.Fatalf("registry must not be called without a key")
	}
}

func TestResolveDoesNotCacheBetweenCalls(t *testing.T) {
	registry := &registryFake{models: []domain.RemoteModel{
		{Name: "models/gemini-1.5-pro", SupportedGenerationMethods: []string{"generateContent"}},
	}}
	uc := NewModelCatalogUseCase(registry, nil)

	first := uc.Resolve(context.Background(), "k")
	registry.models = append(registry.models, domain.RemoteModel{Name: "models/gemini-2.0-pro", SupportedGenerationMethods: []string{"generateContent"}})
	second := uc.Resolve(context.Background(), "k")

	if registry.calls != 2 {
		t.Fatalf("expected 2 registry calls, got %d", registry.calls)
	}
	if len(first.Models) != 1 || len(second.Models) != 2 {
		t.Fatalf("expected catalog to follow the registry, got %v then %v", first.IDs(), second.IDs())
	}
}

func TestConfiguredFallbackNeedsTwoValidModels(t *testing.T) {
	uc := NewModelCatalogUseCase(nil, []string{"models/custom-a", "", "custom-b"})
	if got := uc.Fallback().IDs(); !reflect.DeepEqual(got, []string{"custom-a", "custom-b"}) {
		t.Fatalf("unexpected configured fallback: %v", got)
	}

	uc = NewModelCatalogUseCase(nil, []string{"only-one"})
	if got := uc.Fallback().IDs(); !reflect.DeepEqual(got, DefaultFallbackModels) {
		t.Fatalf("expected default fallback, got %v", got)
	}
}

func TestFallbackCatalogIsACopy(t *testing.T) {
	uc := NewModelCatalogUseCase(nil, nil)
	catalog := uc.Fallback()
	catalog.Models[0] = domain.MustModelDescriptor("tampered")

	if uc.Fallback().Default().ID() != DefaultFallbackModels[0] {
		t.Fatalf("fallback catalog must not be shared between resolutions")
	}
}
