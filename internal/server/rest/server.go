// Package rest exposes the auth and task services over HTTP.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/oauth"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
	"github.com/dmitrijs2005/gophtasks/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Sessions is the part of services.SessionService used by the auth routes.
type Sessions interface {
	FindOrCreateUserFromGoogle(ctx context.Context, profile models.GoogleProfile) (*models.User, error)
	IssueTokenPair(ctx context.Context, user *models.User) (*services.TokenPair, error)
	HandleRefresh(ctx context.Context, token string) (*services.TokenPair, error)
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
	Permissions(user *models.User) []rbac.Permission
}

// Tasks is the part of services.TaskService used by the task routes.
type Tasks interface {
	Create(ctx context.Context, ownerID string, in services.CreateTaskInput) (*models.Task, error)
	FindAllByOwner(ctx context.Context, ownerID string) ([]*models.Task, error)
	FindAll(ctx context.Context) ([]*models.Task, error)
	FindOneByOwner(ctx context.Context, id, ownerID string) (*models.Task, error)
	FindOne(ctx context.Context, id string) (*models.Task, error)
	UpdateByOwner(ctx context.Context, id, ownerID string, in services.UpdateTaskInput) (*models.Task, error)
	Update(ctx context.Context, id string, in services.UpdateTaskInput) (*models.Task, error)
	RemoveByOwner(ctx context.Context, id, ownerID string) error
	Remove(ctx context.Context, id string) error
	Metrics(ctx context.Context, ownerID string) (*models.TaskMetrics, error)
	AdminMetrics(ctx context.Context) (*models.TaskMetrics, error)
}

type Server struct {
	config    *config.Config
	sessions  Sessions
	tasks     Tasks
	provider  oauth.Provider
	logger    logging.Logger
	jwtSecret []byte
	metrics   *httpMetrics
	handler   http.Handler
}

func NewServer(cfg *config.Config, l logging.Logger, ss Sessions, ts Tasks, p oauth.Provider) *Server {
	s := &Server{
		config:    cfg,
		sessions:  ss,
		tasks:     ts,
		provider:  p,
		logger:    l.With("module", "rest_server"),
		jwtSecret: []byte(cfg.JWTSecret),
		metrics:   newHTTPMetrics(),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", s.googleLogin)
		r.Get("/google/callback", s.googleCallback)
		r.Post("/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(s.guard())
			r.Get("/me", s.me)
			r.Get("/status", s.status)
			r.Post("/logout", s.logout)
			r.Post("/logout-all", s.logoutAll)
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.With(s.guard(rbac.TaskReadOwnList)).Get("/metrics", s.taskMetrics)
		r.With(s.guard(rbac.TaskReadAnyList)).Get("/metrics/admin", s.taskMetricsAdmin)
		r.With(s.guard(rbac.TaskCreate)).Post("/", s.createTask)
		r.With(s.guard(rbac.TaskReadOwnList)).Get("/", s.listOwnTasks)
		r.With(s.guard(rbac.TaskReadAnyList)).Get("/all", s.listAllTasks)
		r.With(s.guard(rbac.TaskReadOwnDetail)).Get("/{id}", s.getOwnTask)
		r.With(s.guard(rbac.TaskReadAnyDetail)).Get("/admin/{id}", s.getAnyTask)
		r.With(s.guard(rbac.TaskUpdateOwn)).Patch("/{id}", s.updateOwnTask)
		r.With(s.guard(rbac.TaskUpdateAny)).Patch("/admin/{id}", s.updateAnyTask)
		r.With(s.guard(rbac.TaskDeleteOwn)).Delete("/{id}", s.deleteOwnTask)
		r.With(s.guard(rbac.TaskDeleteAny)).Delete("/admin/{id}", s.deleteAnyTask)
	})

	return r
}

// guard authenticates the request and then checks the required permissions.
func (s *Server) guard(required ...rbac.Permission) func(http.Handler) http.Handler {
	return Chain(s.logger, Authenticate(s.jwtSecret), RequirePermissions(required...))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.config.HTTPAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.WithoutCancel(ctx), "Stopping HTTP server...")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-shutdownErr
}
