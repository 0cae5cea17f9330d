package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	APIStatus  string
	Reason     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "gemini status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("gemini %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("gemini %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// invalidKey covers the 400 INVALID_ARGUMENT answer the service gives for a bad key.
func (e *HTTPStatusError) invalidKey() bool {
	if e.Reason == "API_KEY_INVALID" {
		return true
	}
	return e.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Body), "api key not valid")
}

func geminiVerdict(err error) resilience.Verdict {
	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Ignore
	case resilience.IsCircuitOpen(err):
		return resilience.Outage
	case errors.As(err, &statusErr):
		if isTemporaryHTTPStatus(statusErr.StatusCode) {
			return resilience.Outage
		}
		return resilience.Ignore
	case errors.As(err, &netErr):
		return resilience.Outage
	default:
		return resilience.Fault
	}
}

// classifyKind attaches the domain error kind that callers branch on.
func classifyKind(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrUnauthorized) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized, statusErr.StatusCode == http.StatusForbidden, statusErr.invalidKey():
			return domain.WrapError(domain.ErrUnauthorized, operation, err)
		case statusErr.StatusCode == http.StatusBadRequest, statusErr.StatusCode == http.StatusNotFound:
			return domain.WrapError(domain.ErrInvalidInput, operation, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || geminiVerdict(err) == resilience.Outage {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isTemporaryHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
