package audit

import (
	"context"
	"log/slog"
	"net/http"

	"courseadmin/entity"
	"courseadmin/internal/http-server/handlers/reply"
	"courseadmin/lib/api/cont"
	"courseadmin/lib/api/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type Core interface {
	AuditTrail(ctx context.Context, actor *entity.User, subjectId string) ([]*entity.AuditEvent, error)
}

// Trail lists the audit events of an invitation, company, group or user.
func Trail(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, "http.handlers.audit", r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		subjectId := chi.URLParam(r, "subjectId")
		events, err := handler.AuditTrail(r.Context(), cont.GetUser(r.Context()), subjectId)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("subject_id", subjectId)), "audit trail", err)
			return
		}

		render.JSON(w, r, response.Ok(events))
	}
}
