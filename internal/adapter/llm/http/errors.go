package http

import "fmt"

// ErrorType classifies a provider API failure.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeContentFiltered
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model not found"
	case ErrTypeContentFiltered:
		return "content filtered"
	default:
		return "unknown error"
	}
}

// Error is a provider API error with retry classification. Transport
// adapters map raw HTTP status codes into one of these so the retry
// loop never inspects status codes itself.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Provider   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Provider, e.Type.String(), e.Message, e.StatusCode)
}

// Is matches errors of the same type, enabling errors.Is checks
// against sentinel instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable reports whether retrying the request may succeed.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewAuthenticationError creates a non-retryable credential failure.
func NewAuthenticationError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeAuthentication,
		Message:    message,
		StatusCode: 401,
		Retryable:  false,
		Provider:   provider,
	}
}

// NewRateLimitError creates a retryable rate-limit failure.
func NewRateLimitError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeRateLimit,
		Message:    message,
		StatusCode: 429,
		Retryable:  true,
		Provider:   provider,
	}
}

// NewServiceUnavailableError creates a retryable availability failure.
func NewServiceUnavailableError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeServiceUnavailable,
		Message:    message,
		StatusCode: 503,
		Retryable:  true,
		Provider:   provider,
	}
}

// NewInvalidRequestError creates a non-retryable request failure.
func NewInvalidRequestError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeInvalidRequest,
		Message:    message,
		StatusCode: 400,
		Retryable:  false,
		Provider:   provider,
	}
}

// NewTimeoutError creates a retryable timeout failure.
func NewTimeoutError(provider, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
		Provider:  provider,
	}
}

// NewModelNotFoundError creates a non-retryable unknown-model failure.
func NewModelNotFoundError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeModelNotFound,
		Message:    message,
		StatusCode: 404,
		Retryable:  false,
		Provider:   provider,
	}
}

// NewContentFilteredError creates a non-retryable safety-filter
// failure. Retrying the same prompt would be filtered again.
func NewContentFilteredError(provider, message string) *Error {
	return &Error{
		Type:       ErrTypeContentFiltered,
		Message:    message,
		StatusCode: 400,
		Retryable:  false,
		Provider:   provider,
	}
}

// ClassifyStatus maps an HTTP status code to a typed error.
func ClassifyStatus(provider string, statusCode int, message string) *Error {
	switch {
	case statusCode == 401 || statusCode == 403:
		return NewAuthenticationError(provider, message)
	case statusCode == 404:
		return NewModelNotFoundError(provider, message)
	case statusCode == 429:
		return NewRateLimitError(provider, message)
	case statusCode == 408:
		return NewTimeoutError(provider, message)
	case statusCode >= 500:
		e := NewServiceUnavailableError(provider, message)
		e.StatusCode = statusCode
		return e
	case statusCode >= 400:
		e := NewInvalidRequestError(provider, message)
		e.StatusCode = statusCode
		return e
	default:
		return &Error{
			Type:       ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Provider:   provider,
		}
	}
}
