package remote

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy of remote collaborators.
type Category string

const (
	Timeout     Category = "timeout"
	BadData     Category = "bad_data"
	Auth        Category = "authentication"
	Outage      Category = "outage"
	NotFound    Category = "not_found"
	RateLimited Category = "rate_limited"
	Internal    Category = "internal"
)

// ErrNotFound is matched (errors.Is) by every not_found Error.
var ErrNotFound = errors.New("not found")

// Error wraps a remote failure with its category.
type Error struct {
	Category   Category
	Service    string
	Status     int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Service, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Service, e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

// NewError builds an Error, deriving Retryable from the category.
func NewError(category Category, service, message string, underlying error) *Error {
	if category == NotFound && underlying == nil {
		underlying = ErrNotFound
	}
	return &Error{
		Category:   category,
		Service:    service,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == Timeout || category == Outage || category == RateLimited,
	}
}

// IsRetryable reports whether err is a transient remote failure.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// CategoryOf extracts the category of err, Internal when it has none.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return Internal
}

func categoryForStatus(code int) Category {
	switch {
	case code == 404:
		return NotFound
	case code == 429:
		return RateLimited
	case code == 401 || code == 403:
		return Auth
	case code >= 500:
		return Outage
	default:
		return BadData
	}
}
