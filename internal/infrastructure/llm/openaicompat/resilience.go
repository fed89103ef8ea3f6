package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/grant-tagger/internal/infrastructure/resilience"
)

var (
	errMalformedReply = errors.New("malformed completion reply")
	errNoChoices      = errors.New("completion reply has no choices")
)

// Reasons reported to the Recorder and the log when classification degrades.
const (
	outcomeTagged      = "tagged"
	reasonTimeout      = "timeout"
	reasonHTTPStatus   = "http_status"
	reasonTransport    = "transport"
	reasonMalformed    = "malformed_reply"
	reasonNoChoices    = "no_choices"
	reasonCircuitOpen  = "circuit_open"
	reasonUnclassified = "error"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "llm status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("llm %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("llm %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyLLMError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{RecordFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{RecordFailure: isUpstreamHTTPFailure(statusErr.StatusCode)}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func isUpstreamHTTPFailure(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func degradeReason(err error) string {
	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case resilience.IsCircuitOpen(err):
		return reasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.As(err, &statusErr):
		return reasonHTTPStatus
	case errors.Is(err, errNoChoices):
		return reasonNoChoices
	case errors.Is(err, errMalformedReply):
		return reasonMalformed
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return reasonTimeout
		}
		return reasonTransport
	default:
		return reasonUnclassified
	}
}
