package domain

import (
	"errors"
	"strings"
)

const (
	modelNamePrefix       = "models/"
	GenerateContentMethod = "generateContent"
)

// ModelDescriptor names a remote generation capability. The zero value is invalid.
type ModelDescriptor struct {
	id string
}

// NewModelDescriptor normalizes a raw identifier by trimming the registry prefix.
func NewModelDescriptor(raw string) (ModelDescriptor, error) {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, modelNamePrefix)
	if id == "" || strings.ContainsAny(id, " /") {
		return ModelDescriptor{}, WrapError(ErrInvalidInput, "model descriptor", errors.New("malformed model identifier: "+raw))
	}
	return ModelDescriptor{id: id}, nil
}

func MustModelDescriptor(raw string) ModelDescriptor {
	m, err := NewModelDescriptor(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func (m ModelDescriptor) ID() string {
	return m.id
}

// ResourceName is the identifier in the form the remote API addresses it.
func (m ModelDescriptor) ResourceName() string {
	return modelNamePrefix + m.id
}

func (m ModelDescriptor) IsZero() bool {
	return m.id == ""
}

func (m ModelDescriptor) String() string {
	return m.id
}

// RemoteModel is one untrusted registry entry.
type RemoteModel struct {
	Name                       string
	SupportedGenerationMethods []string
}

func (m RemoteModel) SupportsGeneration() bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == GenerateContentMethod {
			return true
		}
	}
	return false
}

type CatalogSource string

const (
	CatalogLive     CatalogSource = "live"
	CatalogFallback CatalogSource = "fallback"
)

// ModelCatalog is never empty when offered for selection.
type ModelCatalog struct {
	Models []ModelDescriptor
	Source CatalogSource
}

func (c ModelCatalog) Default() ModelDescriptor {
	if len(c.Models) == 0 {
		return ModelDescriptor{}
	}
	return c.Models[0]
}

func (c ModelCatalog) Contains(model ModelDescriptor) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

func (c ModelCatalog) IDs() []string {
	out := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, m.ID())
	}
	return out
}
