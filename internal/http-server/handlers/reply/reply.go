package reply

import (
	"fmt"
	"log/slog"
	"net/http"

	"courseadmin/entity"
	"courseadmin/lib/api/response"
	"courseadmin/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Logger returns the request logger of a handler module.
func Logger(log *slog.Logger, module string, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module(module),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Failure renders err with the status of its reason. Rejections are logged
// as warnings, internal errors as errors.
func Failure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, action string, err error) {
	status := response.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error(action, sl.Err(err))
	} else {
		logger.With(sl.Reason(err)).Warn(action, sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Fail(err))
}

// BadRequest renders a payload that could not be decoded or validated.
func BadRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Warn("bind request", sl.Err(err))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Reason(entity.ReasonValidation, fmt.Sprintf("Invalid request: %v", err)))
}

// Unavailable renders a call to a service that is not configured.
func Unavailable(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	logger.Error("service not available")
	render.Status(r, http.StatusServiceUnavailable)
	render.JSON(w, r, response.Error("Service not available"))
}
