package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrTemporary               = errors.New("temporary failure")
	ErrPrecondition            = errors.New("precondition failed")
	ErrTemplateNotFound        = errors.New("template not found")
	ErrDocumentDecode          = errors.New("document decode failed")
	ErrModelCatalogUnavailable = errors.New("model catalog unavailable")
)

// kinds is ordered by precedence: an error wrapping several kinds reports the first.
var kinds = []error{
	ErrUnauthorized,
	ErrInvalidInput,
	ErrTemplateNotFound,
	ErrPrecondition,
	ErrDocumentDecode,
	ErrModelCatalogUnavailable,
	ErrTemporary,
}

// WrapError tags err with a kind and the operation that failed.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the kind err carries, or nil for an untyped error.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
