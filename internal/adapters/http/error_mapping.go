package httpadapter

import (
	"net/http"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

var statusByKind = map[error]int{
	domain.ErrInvalidInput:     http.StatusBadRequest,
	domain.ErrDocumentDecode:   http.StatusBadRequest,
	domain.ErrUnauthorized:     http.StatusUnauthorized,
	domain.ErrTemplateNotFound: http.StatusNotFound,
	domain.ErrPrecondition:     http.StatusPreconditionFailed,
	domain.ErrTemporary:        http.StatusServiceUnavailable,
}

func mapErrorToHTTPStatus(err error) int {
	if status, ok := statusByKind[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// mapOutcomeToHTTPStatus answers a failed generation as an upstream failure.
func mapOutcomeToHTTPStatus(outcome *domain.GenerationOutcome) int {
	if outcome == nil || !outcome.Failed {
		return http.StatusOK
	}
	return http.StatusBadGateway
}
