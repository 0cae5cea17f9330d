package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

// pageExtractorFake splits document data on form feeds; data starting with "BAD" fails.
type pageExtractorFake struct {
	calls []string
}

func (f *pageExtractorFake) Extract(_ context.Context, doc domain.Document) ([]string, error) {
	f.calls = append(f.calls, doc.Name)
	if bytes.HasPrefix(doc.Data, []byte("BAD")) {
		return nil, errors.New("not a PDF file: invalid header")
	}
	if bytes.HasPrefix(doc.Data, []byte("PANIC")) {
		panic("malformed xref table")
	}
	if len(doc.Data) == 0 {
		return []string{}, nil
	}
	return strings.Split(string(doc.Data), "\f"), nil
}

type registryFake struct {
	models []domain.RemoteModel
	err    error
	calls  int
	keys   []string
}

func (f *registryFake) ListModels(_ context.Context, apiKey string) ([]domain.RemoteModel, error) {
	f.calls++
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

type generatorFake struct {
	text       string
	err        error
	panicValue any
	calls      int
	lastKey    string
	lastModel  domain.ModelDescriptor
	lastPrompt string
}

func (f *generatorFake) GenerateContent(_ context.Context, apiKey string, model domain.ModelDescriptor, prompt string) (string, error) {
	f.calls++
	f.lastKey = apiKey
	f.lastModel = model
	f.lastPrompt = prompt
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type notifierFake struct {
	events []domain.DigestEvent
	err    error
}

func (f *notifierFake) PublishDigestGenerated(_ context.Context, event domain.DigestEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type catalogFake struct {
	catalog domain.ModelCatalog
	calls   int
}

func (f *catalogFake) Resolve(context.Context, string) domain.ModelCatalog {
	f.calls++
	return f.catalog
}

type templateStoreFake struct {
	templates map[string]domain.PromptTemplate
	saveErr   error
}

func (f *templateStoreFake) GetTemplate(_ context.Context, name string) (*domain.PromptTemplate, error) {
	tpl, ok := f.templates[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", errors.New("name="+name))
	}
	return &tpl, nil
}

func (f *templateStoreFake) SaveTemplate(_ context.Context, tpl domain.PromptTemplate) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.templates == nil {
		f.templates = map[string]domain.PromptTemplate{}
	}
	f.templates[tpl.Name] = tpl
	return nil
}
