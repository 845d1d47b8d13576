package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPartnerNotFound    = errors.New("partner not found")
	ErrDocumentNotFound   = errors.New("document not found in booking")
	ErrInvalidState       = errors.New("invalid state for operation")
	ErrAlreadyAssigned    = errors.New("booking already has an assigned partner")
	ErrPartnerUnavailable = errors.New("partner is not available")
	ErrMissingPartner     = errors.New("booking must have an assigned partner")
	ErrDocumentsPending   = errors.New("all documents must be approved")
	ErrInvalidStatus      = errors.New("invalid status value")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrLockTimeout        = errors.New("could not acquire lock")
)

// ErrorKind groups failures by how a caller should react to them.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindConflict     ErrorKind = "CONFLICT"
	KindUnavailable  ErrorKind = "UNAVAILABLE"
	KindRateLimited  ErrorKind = "RATE_LIMITED"
	KindLockTimeout  ErrorKind = "LOCK_TIMEOUT"
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindInternal     ErrorKind = "INTERNAL"
)

// KindOf classifies err against the sentinel errors above.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrPartnerNotFound), errors.Is(err, ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrMissingPartner), errors.Is(err, ErrDocumentsPending):
		return KindInvalidState
	case errors.Is(err, ErrAlreadyAssigned):
		return KindConflict
	case errors.Is(err, ErrPartnerUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrLockTimeout):
		return KindLockTimeout
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidInput):
		return KindValidation
	default:
		return KindInternal
	}
}

// DetailError carries a user-facing message and diagnostics on top of a
// sentinel error, e.g. the docTypes still waiting for approval.
type DetailError struct {
	Err     error
	Message string
	Details map[string]any
}

func (e *DetailError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DetailError) Unwrap() error {
	return e.Err
}

func NewDetailError(err error, details map[string]any, format string, args ...any) *DetailError {
	return &DetailError{Err: err, Message: fmt.Sprintf(format, args...), Details: details}
}

// DetailsOf returns the diagnostics attached anywhere in err's chain.
func DetailsOf(err error) map[string]any {
	var de *DetailError
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}
