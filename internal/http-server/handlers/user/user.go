package user

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

const module = "http.handlers.user"

type Core interface {
	RegisterUser(ctx context.Context, req *entity.Register) (*entity.Redemption, error)
	Login(ctx context.Context, req *entity.Login) (*entity.Token, error)
	AssignRole(ctx context.Context, actor *entity.User, userId string, req *entity.AssignRole) (*entity.User, error)
}

// Register creates an account. With an invitation code the account is linked
// to the code's company or group, or not created at all.
func Register(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.Register
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(
			slog.String("email", req.Email),
			sl.Secret("code", req.InvitationCode),
		)

		red, err := handler.RegisterUser(r.Context(), &req)
		if err != nil {
			reply.Failure(w, r, logger, "register user", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.OkMessage(red, red.Message))
	}
}

func Login(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.Login
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}

		token, err := handler.Login(r.Context(), &req)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("email", req.Email)), "login", err)
			return
		}

		render.JSON(w, r, response.Ok(token))
	}
}

// SetRole lets an admin make a user the manager of a company, or change the
// role back.
func SetRole(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := reply.Logger(log, module, r)
		if handler == nil {
			reply.Unavailable(w, r, logger)
			return
		}

		var req entity.AssignRole
		if err := render.Bind(r, &req); err != nil {
			reply.BadRequest(w, r, logger, err)
			return
		}

		id := chi.URLParam(r, "id")
		user, err := handler.AssignRole(r.Context(), cont.GetUser(r.Context()), id, &req)
		if err != nil {
			reply.Failure(w, r, logger.With(slog.String("user_id", id)), "assign role", err)
			return
		}

		render.JSON(w, r, response.OkMessage(user, "Role updated"))
	}
}
