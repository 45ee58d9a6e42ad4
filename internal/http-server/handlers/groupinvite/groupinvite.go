package groupinvite

import (
	"context"
	"log/slog"
	"net/http"

	"courseadmin/entity"
	"courseadmin/internal/http-server/handlers/reply"
	"courseadmin/lib/api/cont"
	"courseadmin/lib/api/response"
	"courseadmin/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const module = "http.handlers.groupinvite"

type Core interface {
	ValidateGroupInvitation(ctx context.Context, code string) (*entity.GroupInvitationCheck, error)
	UseInvitation(ctx context.Context, req *entity.UseInvitation) (*entity.Redemption, error)
	CreateInvitation(ctx context.Context, actor *entity.User, req *entity.CreateInvitation) (*entity.InvitationCode, error)
	ListInvitations(ctx context.Context, actor *entity.User, scope entity.Scope, targetId string) ([]*entity.InvitationWithDetails, error)
	DeactivateInvitation(ctx context.Context, actor *entity.User, scope entity.Scope, id string) (*entity.InvitationCode, error)
}

func Validate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		code := chi.URLParam(r, "code")
		logger = logger.With(sl.Secret("code", code))

		check, err := handler.ValidateGroupInvitation(r.Context(), code)
		if err != nil {
			reply.Failure(w, r, logger, "validate invitation", err)
			return
		}
		logger.With(
			slog.Bool("valid", check.Valid),
			slog.String("reason", string(check.Reason)),
		).Debug("group invitation validated")

		render.JSON(w, r, response.OkMessage(check, check.Message))
	}
}

// Use redeems a group code for an existing user.
func Use(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.UseInvitation
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(
			sl.Secret("code", req.InvitationCode),
			slog.String("user_id", req.UserId),
		)

		red, err := handler.UseInvitation(r.Context(), &req)
		if err != nil {
			reply.Failure(w, r, logger, "use invitation", err)
			return
		}

		render.JSON(w, r, response.OkMessage(red, red.Message))
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
		req.Scope = entity.ScopeGroup
		req.TargetId = chi.URLParam(r, "id")

		inv, err := handler.CreateInvitation(r.Context(), cont.GetUser(r.Context()), &req)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("group_id", req.TargetId)), "create invitation", err)
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

		groupId := chi.URLParam(r, "id")
		list, err := handler.ListInvitations(r.Context(), cont.GetUser(r.Context()), entity.ScopeGroup, groupId)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("group_id", groupId)), "list invitations", err)
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
		inv, err := handler.DeactivateInvitation(r.Context(), cont.GetUser(r.Context()), entity.ScopeGroup, id)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("id", id)), "deactivate invitation", err)
			return
		}

		render.JSON(w, r, response.OkMessage(inv, "Invitation code deactivated"))
	}
}
