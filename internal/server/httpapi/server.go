// Package httpapi exposes the REST surface of the task tracker. It resolves
// the owner identity from the bearer token before every protected operation
// and translates service errors to status codes; all business rules live in
// the services package.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avolkovs/taskdeck/internal/logging"
	"github.com/avolkovs/taskdeck/internal/server/config"
	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/avolkovs/taskdeck/internal/server/query"
	"github.com/avolkovs/taskdeck/internal/server/services"
)

// UserService is the identity/session surface the handlers call.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, params services.UpdateProfileParams) (*models.User, error)
	UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	AvatarUploadURL(ctx context.Context, userID string) (string, string, error)
	AvatarDownloadURL(ctx context.Context, key string) (string, error)
}

// TaskService is the owner-scoped task surface the handlers call.
type TaskService interface {
	Create(ctx context.Context, ownerID string, params services.CreateTaskParams) (*models.Task, error)
	Get(ctx context.Context, ownerID, taskID string) (*models.Task, error)
	List(ctx context.Context, ownerID string, filter query.Filter) ([]*models.Task, error)
	Stats(ctx context.Context, ownerID string) (query.Stats, error)
	Update(ctx context.Context, ownerID, taskID string, params services.UpdateTaskParams) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

type Server struct {
	config    *config.Config
	logger    logging.Logger
	users     UserService
	tasks     TaskService
	jwtSecret []byte
}

func NewServer(cfg *config.Config, l logging.Logger, us UserService, ts TaskService) *Server {
	return &Server{
		config:    cfg,
		logger:    l.With("module", "httpapi"),
		users:     us,
		tasks:     ts,
		jwtSecret: []byte(cfg.SecretKey),
	}
}

func (s *Server) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.healthHandler)

	mux.HandleFunc("POST /api/user/register", s.registerHandler)
	mux.HandleFunc("POST /api/user/login", s.loginHandler)
	mux.HandleFunc("GET /api/user/me", s.requireAuth(s.currentUserHandler))
	mux.HandleFunc("PUT /api/user/profile", s.requireAuth(s.updateProfileHandler))
	mux.HandleFunc("PUT /api/user/password", s.requireAuth(s.updatePasswordHandler))
	mux.HandleFunc("POST /api/user/avatar", s.requireAuth(s.avatarUploadURLHandler))

	mux.HandleFunc("POST /api/tasks", s.requireAuth(s.createTaskHandler))
	mux.HandleFunc("GET /api/tasks", s.requireAuth(s.listTasksHandler))
	mux.HandleFunc("GET /api/tasks/stats", s.requireAuth(s.taskStatsHandler))
	mux.HandleFunc("GET /api/tasks/{id}", s.requireAuth(s.getTaskHandler))
	mux.HandleFunc("PUT /api/tasks/{id}", s.requireAuth(s.updateTaskHandler))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.requireAuth(s.deleteTaskHandler))

	var handler http.Handler = mux
	handler = s.enableCORS(handler)
	if s.config.RateLimitEnabled {
		handler = s.rateLimit(ctx, handler)
	}
	return handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.EndpointAddrHTTP,
		Handler:      s.routes(ctx),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{"status": "available"})
}
