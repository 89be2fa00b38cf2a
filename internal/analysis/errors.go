package analysis

import (
	"errors"

	"cvtailor-backend/internal/selection"
)

var (
	// ErrInvalidJDURL is returned for JD URLs that are not absolute http(s) URLs.
	ErrInvalidJDURL = errors.New("jd_url must be an absolute http(s) URL")
	// ErrInvalidInput covers requests missing a user or a usable company.
	ErrInvalidInput = errors.New("invalid input")
)

// Error types returned to clients for user-actionable failures.
const (
	ErrorTypeCVNotFound         = "cv_not_found"
	ErrorTypeTailoredCVNotFound = "tailored_cv_not_found"
	ErrorTypeInvalidJDURL       = "invalid_jd_url"
	ErrorTypeInvalidRequest     = "invalid_request"
)

// ErrorType maps user-actionable errors to their wire name. It returns ""
// for everything else.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, selection.ErrTailoredCVNotFound):
		return ErrorTypeTailoredCVNotFound
	case errors.Is(err, selection.ErrCVNotFound):
		return ErrorTypeCVNotFound
	case errors.Is(err, ErrInvalidJDURL):
		return ErrorTypeInvalidJDURL
	case errors.Is(err, ErrInvalidInput):
		return ErrorTypeInvalidRequest
	default:
		return ""
	}
}
