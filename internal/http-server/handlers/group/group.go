package group

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

const module = "http.handlers.group"

type Core interface {
	GroupCapacity(ctx context.Context, groupId string) (*entity.Capacity, error)
	CreateGroup(ctx context.Context, actor *entity.User, req *entity.CreateGroup) (*entity.GroupView, error)
	GetGroup(ctx context.Context, id string) (*entity.GroupView, error)
	SetGroupStatus(ctx context.Context, actor *entity.User, id string, status entity.GroupStatus) (*entity.GroupView, error)
	RemoveGroupMember(ctx context.Context, actor *entity.User, groupId, userId string) (*entity.GroupView, error)
}

func Capacity(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		id := chi.URLParam(r, "id")
		capacity, err := handler.GroupCapacity(r.Context(), id)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("group_id", id)), "get capacity", err)
			return
		}

		render.JSON(w, r, response.Ok(capacity))
	}
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.CreateGroup
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}

		view, err := handler.CreateGroup(r.Context(), cont.GetUser(r.Context()), &req)
		if err != nil {
			reply.Failure(w, r, logger, "create group", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.OkMessage(view, "Group created"))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		id := chi.URLParam(r, "id")
		view, err := handler.GetGroup(r.Context(), id)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("group_id", id)), "get group", err)
			return
		}

		render.JSON(w, r, response.Ok(view))
	}
}

func Status(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.SetGroupStatus
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}

		id := chi.URLParam(r, "id")
		view, err := handler.SetGroupStatus(r.Context(), cont.GetUser(r.Context()), id, req.Status)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("group_id", id)), "set group status", err)
			return
		}

		render.JSON(w, r, response.OkMessage(view, "Group status updated"))
	}
}

func RemoveMember(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		id := chi.URLParam(r, "id")
		userId := chi.URLParam(r, "userId")
		logger = logger.With(
			slog.String("group_id", id),
			slog.String("user_id", userId),
		)

		view, err := handler.RemoveGroupMember(r.Context(), cont.GetUser(r.Context()), id, userId)
		if err != nil {
			reply.Failure(w, r, logger, "remove member", err)
			return
		}

		render.JSON(w, r, response.OkMessage(view, "Member removed from the group"))
	}
}
