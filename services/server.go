package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/repository"
	ws "github.com/Afefmejri25/crm/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Repository is the full persistence surface the HTTP API serves from.
type Repository interface {
	AuthRepository
	repository.ClientRepository
	repository.CallRepository
	repository.DocumentRepository
	repository.NotificationRepository
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketStats reports how many objects a storage bucket holds and their total size.
type BucketStats interface {
	Stats(bucket string) (int, int64, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Repo      Repository
	Analytics repository.AnalyticsRepository
	Objects   ObjectStore
	Hub       *ws.Hub
}

// Server holds all server dependencies
type Server struct {
	config                *Config
	deps                  Deps
	authService           *AuthService
	authEndpoints         *AuthEndpoints
	profileEndpoints      *ProfileEndpoints
	clientEndpoints       *ClientEndpoints
	callEndpoints         *CallEndpoints
	documentEndpoints     *DocumentEndpoints
	notificationEndpoints *NotificationEndpoints
	storageEndpoints      *StorageEndpoints
	analyticsEndpoints    *AnalyticsEndpoints
	upgrader              websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config, deps Deps) *Server {
	if deps.Hub == nil {
		deps.Hub = ws.NewHub()
	}

	s := &Server{
		config: config,
		deps:   deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}

	s.authService = NewAuthService(deps.Repo, config.JWT.Secret)
	s.authEndpoints = NewAuthEndpoints(s.authService, NewIPRateLimiter(config.Auth.LoginRatePerMinute, config.Auth.LoginBurst))
	s.profileEndpoints = NewProfileEndpoints(deps.Repo)
	s.clientEndpoints = NewClientEndpoints(deps.Repo)
	s.callEndpoints = NewCallEndpoints(deps.Repo, deps.Repo)
	s.notificationEndpoints = NewNotificationEndpoints(deps.Repo, deps.Repo, deps.Hub)
	if deps.Objects != nil {
		s.documentEndpoints = NewDocumentEndpoints(deps.Repo, deps.Objects)
		s.storageEndpoints = NewStorageEndpoints(deps.Objects, s.authService.Middleware)
	}
	if deps.Analytics != nil {
		s.analyticsEndpoints = NewAnalyticsEndpoints(deps.Analytics)
	}

	slog.Info("Server services initialized",
		"storage", deps.Objects != nil,
		"analytics", deps.Analytics != nil,
	)
	return s
}

// Hub returns the realtime hub. The caller runs it.
func (s *Server) Hub() *ws.Hub {
	return s.deps.Hub
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		s.authEndpoints.RegisterRoutes(r)
		if s.storageEndpoints != nil {
			s.storageEndpoints.RegisterRoutes(r)
		}

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)
			r.Get("/ws", s.websocketHandlerFunc)
			s.profileEndpoints.RegisterRoutes(r)

			// Routes that need a resolved role
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(models.RoleAdmin, models.RoleAgent))
				s.clientEndpoints.RegisterRoutes(r)
				s.callEndpoints.RegisterRoutes(r)
				s.notificationEndpoints.RegisterRoutes(r)
				if s.documentEndpoints != nil {
					s.documentEndpoints.RegisterRoutes(r)
				}
			})

			if s.analyticsEndpoints != nil {
				r.Group(func(r chi.Router) {
					r.Use(RequireRoles(models.RoleAdmin))
					s.analyticsEndpoints.RegisterRoutes(r)
				})
			}
		})
	})

	return r
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      otelhttp.NewHandler(s.SetupRoutes(), "crm-server"),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.announceShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	s.deps.Hub.Stop()

	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks.
// Requests without an Origin header come from non-browser clients and are allowed.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	// If no allowed origins are configured, deny all browser requests
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

// announceShutdown tells every realtime subscriber the server is going away,
// so clients stop listening instead of treating the disconnect as an error.
func (s *Server) announceShutdown() {
	if err := s.deps.Hub.Broadcast(models.Event{Type: models.EventServerShutdown}); err != nil {
		slog.Warn("Failed to announce shutdown", "error", err)
	}
}

type bucketHealth struct {
	Objects int   `json:"objects"`
	Bytes   int64 `json:"bytes"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if pinger, ok := s.deps.Repo.(Pinger); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			dbStatus = "down"
			status = "degraded"
		} else {
			dbStatus = "up"
		}
	}

	resp := map[string]interface{}{"status": status, "database": dbStatus}
	if stats, ok := s.deps.Objects.(BucketStats); ok {
		count, size, err := stats.Stats(models.DocumentsBucket)
		if err != nil {
			slog.Warn("Failed to read document bucket stats", "error", err)
			resp["documents"] = "unavailable"
		} else {
			resp["documents"] = bucketHealth{Objects: count, Bytes: size}
		}
	}

	writeJSON(w, http.StatusOK, resp)
	slog.Debug("Health check", "status", status, "database", dbStatus)
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API v1", "version": "1.0.0"})
}

// websocketHandlerFunc subscribes the caller to their realtime notification feed.
func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	if user == nil {
		writeError(w, ErrUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID)

	client := s.deps.Hub.RegisterClient(conn, user.ID)
	go client.WritePump()
	client.ReadPump()
}
