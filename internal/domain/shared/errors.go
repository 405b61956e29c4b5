package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so wrapped
// errors built from a sentinel still match it with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "invalid input provided")
	ErrUnauthorized  = NewDomainError("UNAUTHORIZED", "not authorized to perform this action")
	ErrRateLimited   = NewDomainError("RATE_LIMITED", "too many requests")
	ErrUnavailable   = NewDomainError("UNAVAILABLE", "service unavailable")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "operation not allowed in current state")
)
