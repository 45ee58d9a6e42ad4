package company

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

const module = "http.handlers.company"

type Core interface {
	RegisterCompany(ctx context.Context, req *entity.RegisterCompany) (*entity.Company, error)
	PendingCompanies(ctx context.Context, actor *entity.User) ([]*entity.Company, error)
	ApproveCompany(ctx context.Context, actor *entity.User, id string) (*entity.Decision, error)
	RejectCompany(ctx context.Context, actor *entity.User, id, reason string) (*entity.Decision, error)
}

func Register(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.RegisterCompany
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}

		company, err := handler.RegisterCompany(r.Context(), &req)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("tax_number", req.TaxNumber)), "register company", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.OkMessage(company, "Company registered and waiting for approval"))
	}
}

func Pending(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		companies, err := handler.PendingCompanies(r.Context(), cont.GetUser(r.Context()))
		if err != nil {
			reply.Failure(w, r, logger, "list pending companies", err)
			return
		}

		render.JSON(w, r, response.Ok(companies))
	}
}

func Approve(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		id := chi.URLParam(r, "id")
		decision, err := handler.ApproveCompany(r.Context(), cont.GetUser(r.Context()), id)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("company_id", id)), "approve company", err)
			return
		}

		render.JSON(w, r, response.OkMessage(decision, decision.Message))
	}
}

// Reject accepts an optional {reason} body.
func Reject(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.RejectCompany
		if r.ContentLength != 0 {
			if err := render.Bind(r, &req); err != nil {
				reply.BadRequest(w, r, logger, err)
				return
			}
		}

		id := chi.URLParam(r, "id")
		decision, err := handler.RejectCompany(r.Context(), cont.GetUser(r.Context()), id, req.Reason)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("company_id", id)), "reject company", err)
			return
		}

		render.JSON(w, r, response.OkMessage(decision, decision.Message))
	}
}
