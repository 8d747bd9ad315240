package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Dosada05/mob-esports/models"
)

// FallbackMessage is shown when a failed response carries no usable error.
const FallbackMessage = "Something went wrong"

var (
	// ErrUnavailable wraps calls rejected by the open circuit breaker.
	ErrUnavailable = errors.New("api temporarily unavailable")
	// ErrInvalidInput wraps client-side validation failures; no request is sent.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a non-2xx response or an envelope with status false.
type APIError struct {
	StatusCode int
	Envelope   *models.Envelope
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, env *models.Envelope) *APIError {
	msg := ""
	if env != nil {
		msg = env.Error.Message()
	}
	if msg == "" {
		msg = FallbackMessage
	}
	return &APIError{StatusCode: status, Envelope: env, Message: msg}
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// UserMessage is the text to show for err: the API's message when there is
// one, the fallback otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrInvalidInput) {
		return err.Error()
	}
	return FallbackMessage
}
