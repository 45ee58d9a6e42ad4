package response

import (
	"net/http"

	"courseadmin/entity"
	"courseadmin/lib/clock"
)

type Response struct {
	Data          interface{}   `json:"data,omitempty"`
	Success       bool          `json:"success" validate:"required"`
	StatusMessage string        `json:"status_message"`
	Error         entity.Reason `json:"error,omitempty"`
	Timestamp     string        `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Now(),
	}
}

// OkMessage is Ok with a human-readable message the front end shows as is.
func OkMessage(data interface{}, message string) Response {
	r := Ok(data)
	r.StatusMessage = message
	return r
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Error:         entity.ReasonUnknown,
		Timestamp:     clock.Now(),
	}
}

// Fail renders a domain error with its reason code. Errors without a reason
// are internal and their text is not exposed.
func Fail(err error) Response {
	reason := entity.ReasonOf(err)
	message := err.Error()
	if reason == entity.ReasonUnknown {
		message = "Internal server error"
	}
	return Response{
		Success:       false,
		StatusMessage: message,
		Error:         reason,
		Timestamp:     clock.Now(),
	}
}

// StatusOf maps the reason of err to the HTTP status of a failed call.
func StatusOf(err error) int {
	switch entity.ReasonOf(err) {
	case entity.ReasonValidation:
		return http.StatusBadRequest
	case entity.ReasonAuthRequired:
		return http.StatusUnauthorized
	case entity.ReasonForbidden:
		return http.StatusForbidden
	case entity.ReasonNotFound:
		return http.StatusNotFound
	case entity.ReasonAlreadyMember,
		entity.ReasonCapacityExceeded,
		entity.ReasonUsageLimitReached,
		entity.ReasonExpired,
		entity.ReasonDeactivated,
		entity.ReasonGroupClosed:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Reason renders a failure with an explicit reason, for errors raised at the
// HTTP layer itself (bad body, missing token).
func Reason(reason entity.Reason, message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Error:         reason,
		Timestamp:     clock.Now(),
	}
}
