package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"courseadmin/internal/config"
	"courseadmin/internal/http-server/handlers/audit"
	"courseadmin/internal/http-server/handlers/company"
	"courseadmin/internal/http-server/handlers/companyinvite"
	"courseadmin/internal/http-server/handlers/errors"
	"courseadmin/internal/http-server/handlers/group"
	"courseadmin/internal/http-server/handlers/groupinvite"
	"courseadmin/internal/http-server/handlers/user"
	"courseadmin/internal/http-server/middleware/authenticate"
	"courseadmin/internal/http-server/middleware/timeout"
	"courseadmin/internal/metrics"
	"courseadmin/lib/api/response"
	"courseadmin/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	companyinvite.Core
	groupinvite.Core
	group.Core
	company.Core
	user.Core
	audit.Core
}

// NewRouter builds the full route tree without binding a listener.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   conf.Cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Handle("/metrics", metrics.Handler())

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Use(render.SetContentType(render.ContentTypeJSON))

		rootApi.Route("/public", func(public chi.Router) {
			public.Use(rateLimit(conf.RateLimit))
			public.Post("/company-invitations/check", companyinvite.Check(log, handler))
			public.Get("/groups/invitation/{code}/validate", groupinvite.Validate(log, handler))
			public.Post("/groups/use-invitation", groupinvite.Use(log, handler))
			public.Post("/companies", company.Register(log, handler))
			public.Post("/register", user.Register(log, handler))
			public.Post("/login", user.Login(log, handler))
		})

		rootApi.Group(func(private chi.Router) {
			private.Use(authenticate.New(log, handler))

			private.Route("/company-invitations", func(ci chi.Router) {
				ci.Post("/", companyinvite.Create(log, handler))
				ci.Get("/company/{id}", companyinvite.List(log, handler))
				ci.Put("/{id}/deactivate", companyinvite.Deactivate(log, handler))
			})
			private.Route("/groups", func(gr chi.Router) {
				gr.Post("/", group.Create(log, handler))
				gr.Get("/{id}", group.Get(log, handler))
				gr.Get("/{id}/capacity", group.Capacity(log, handler))
				gr.Put("/{id}/status", group.Status(log, handler))
				gr.Delete("/{id}/members/{userId}", group.RemoveMember(log, handler))
				gr.Post("/{id}/invitations", groupinvite.Create(log, handler))
				gr.Get("/{id}/invitations", groupinvite.List(log, handler))
			})
			private.Put("/group-invitations/{id}/deactivate", groupinvite.Deactivate(log, handler))

			private.Route("/admin", func(admin chi.Router) {
				admin.Get("/companies/pending", company.Pending(log, handler))
				admin.Put("/companies/{id}/approve", company.Approve(log, handler))
				admin.Put("/companies/{id}/reject", company.Reject(log, handler))
				admin.Put("/users/{id}/role", user.SetRole(log, handler))
				admin.Get("/audit/{subjectId}", audit.Trail(log, handler))
			})
		})
	})

	return router
}

// rateLimit limits public calls per client IP; zero requests disables it.
func rateLimit(conf config.RateLimitConfig) func(http.Handler) http.Handler {
	if conf.Requests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	window := time.Duration(conf.WindowSec) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		conf.Requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("Too many requests"))
		}),
	)
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(conf, log, handler),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
