package entity

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable failure code returned to API clients in the
// "error" field of a failed response.
type Reason string

const (
	ReasonNotFound          Reason = "NotFound"
	ReasonDeactivated       Reason = "Deactivated"
	ReasonExpired           Reason = "Expired"
	ReasonUsageLimitReached Reason = "UsageLimitReached"
	ReasonCapacityExceeded  Reason = "CapacityExceeded"
	ReasonGroupClosed       Reason = "GroupClosed"
	ReasonAlreadyMember     Reason = "AlreadyMember"
	ReasonAuthRequired      Reason = "AuthenticationRequired"
	ReasonForbidden         Reason = "Forbidden"
	ReasonValidation        Reason = "ValidationError"
	ReasonUnknown           Reason = "Unknown"
)

// Failure is a domain error carrying a Reason. Every layer may wrap it with
// fmt.Errorf("...: %w"); ReasonOf recovers it at the API boundary.
type Failure struct {
	Reason  Reason
	Message string
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Reason)
	}
	return f.Message
}

func Fail(reason Reason, format string, args ...interface{}) error {
	return &Failure{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// ReasonOf returns the Reason of the first Failure in the error chain,
// ReasonUnknown if there is none.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ReasonUnknown
}

// IsReason reports whether err carries the given reason.
func IsReason(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}
