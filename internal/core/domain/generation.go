package domain

import "time"

type FailureKind string

const (
	FailureUnauthorized   FailureKind = "unauthorized"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureTemporary      FailureKind = "temporary"
	FailureUnknown        FailureKind = "unknown"
)

// ClassifyFailure maps a typed error to the kind shown to the caller.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrUnauthorized):
		return FailureUnauthorized
	case IsKind(err, ErrInvalidInput):
		return FailureInvalidRequest
	case IsKind(err, ErrTemporary):
		return FailureTemporary
	default:
		return FailureUnknown
	}
}

// GenerationOutcome is either generated text or an error message, never both.
type GenerationOutcome struct {
	Model   string      `json:"model"`
	Content string      `json:"text,omitempty"`
	Message string      `json:"error,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
	Failed  bool        `json:"failed"`
}

func GenerationText(model ModelDescriptor, content string) GenerationOutcome {
	return GenerationOutcome{Model: model.ID(), Content: content}
}

func GenerationError(model ModelDescriptor, err error) GenerationOutcome {
	message := "generation failed"
	if err != nil {
		message = err.Error()
	}
	return GenerationOutcome{
		Model:   model.ID(),
		Message: message,
		Kind:    ClassifyFailure(err),
		Failed:  true,
	}
}

// DigestEvent is published after every generate action.
type DigestEvent struct {
	ID          string      `json:"id"`
	Model       string      `json:"model"`
	Documents   int         `json:"documents"`
	Failures    int         `json:"failures"`
	PromptChars int         `json:"prompt_chars"`
	Stage       Stage       `json:"stage"`
	Kind        FailureKind `json:"kind,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
