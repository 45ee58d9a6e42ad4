package errors

import (
	"log/slog"
	"net/http"

	"courseadmin/entity"
	"courseadmin/lib/api/response"
	"courseadmin/lib/sl"

	"github.com/go-chi/render"
)

func NotFound(log *slog.Logger) http.HandlerFunc {
	logger := log.With(sl.Module("http.handlers.errors"))
	return func(w http.ResponseWriter, r *http.Request) {
		logger.With(slog.String("path", r.URL.Path)).Debug("route not found")

		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Reason(entity.ReasonNotFound, "Requested resource not found"))
	}
}
