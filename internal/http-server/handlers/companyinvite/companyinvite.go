package companyinvite

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

const module = "http.handlers.companyinvite"

type Core interface {
	CheckCompanyInvitation(ctx context.Context, code string) (*entity.CompanyInvitationCheck, error)
	CreateInvitation(ctx context.Context, actor *entity.User, req *entity.CreateInvitation) (*entity.InvitationCode, error)
	ListInvitations(ctx context.Context, actor *entity.User, scope entity.Scope, targetId string) ([]*entity.InvitationWithDetails, error)
	DeactivateInvitation(ctx context.Context, actor *entity.User, scope entity.Scope, id string) (*entity.InvitationCode, error)
}

// Check answers whether a company code can be used. An unusable code is a
// regular answer with isValid=false.
func Check(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.CheckInvitation
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}

		check, err := handler.CheckCompanyInvitation(r.Context(), req.InvitationCode)
		if err != nil {
			reply.Failure(w, r, logger, "check invitation", err)
			return
		}
		logger.With(
			slog.Bool("valid", check.IsValid),
			slog.String("reason", string(check.Reason)),
		).Debug("company invitation checked")

		render.JSON(w, r, response.OkMessage(check, check.Message))
	}
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.CreateInvitation
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}
		req.Scope = entity.ScopeCompany
		req.TargetId = req.CompanyId

		inv, err := handler.CreateInvitation(r.Context(), cont.GetUser(r.Context()), &req)
		if err != nil {
			reply.Failure(w, r, logger, "create invitation", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.OkMessage(inv, "Invitation code created"))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		companyId := chi.URLParam(r, "id")
		list, err := handler.ListInvitations(r.Context(), cont.GetUser(r.Context()), entity.ScopeCompany, companyId)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("company_id", companyId)), "list invitations", err)
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Deactivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		id := chi.URLParam(r, "id")
		inv, err := handler.DeactivateInvitation(r.Context(), cont.GetUser(r.Context()), entity.ScopeCompany, id)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("id", id)), "deactivate invitation", err)
			return
		}

		render.JSON(w, r, response.OkMessage(inv, "Invitation code deactivated"))
	}
}
