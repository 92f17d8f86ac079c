// Package http provides the gin HTTP server, its middleware and route wiring.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/robert/internal/config"
	identityHTTP "github.com/allisson/robert/internal/identity/http"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	keystoreHTTP "github.com/allisson/robert/internal/keystore/http"
	keystoreService "github.com/allisson/robert/internal/keystore/service"
	"github.com/allisson/robert/internal/metrics"
)

// KeySource exposes the current keystore generation for readiness probes.
type KeySource interface {
	Snapshot() (keys keystoreDomain.Keys, release func())
}

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	keys   KeySource
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. db and keys back the readiness probe.
func NewServer(
	db *sql.DB,
	keys KeySource,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		keys:   keys,
		logger: logger,
		server: newHTTPServer(host, port, nil),
	}
}

func newHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// listenAndServe blocks until server is shut down. A closed server is not an error.
func listenAndServe(server *http.Server, name string, logger *slog.Logger) error {
	logger.Info("starting "+name, slog.String("addr", server.Addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// SetupRouter builds the gin router with every route and middleware. ctx bounds the
// background work of the rate limiter. The admin reload route is registered only
// when cfg carries an admin token hash.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	identityHandler *identityHTTP.IdentityHandler,
	keystoreHandler *keystoreHTTP.KeystoreHandler,
	adminTokenService keystoreService.AdminTokenService,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	public := v1.Group("")
	if cfg.RateLimitEnabled {
		public.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	public.POST("/register", identityHandler.RegisterHandler)
	public.POST("/status", identityHandler.StatusHandler)
	public.POST("/unregister", identityHandler.UnregisterHandler)
	public.POST("/deleteExposureHistory", identityHandler.DeleteHistoryHandler)

	if cfg.KeystoreAdminTokenHash != "" && keystoreHandler != nil {
		admin := v1.Group("/admin")
		admin.Use(keystoreHTTP.AdminTokenMiddleware(adminTokenService, cfg.KeystoreAdminTokenHash, s.logger))
		admin.POST("/keystore/reload", keystoreHandler.ReloadHandler)
	} else {
		s.logger.Info("keystore reload endpoint disabled: no admin token hash configured")
	}

	s.router = router
}

// Start starts the HTTP server. SetupRouter must be called first.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router
	return listenAndServe(s.server, "http server", s.logger)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready once the database answers and the keystore holds
// the keys every request needs.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{"database": "ok", "keystore": "ok"}
	ready := true

	if s.db == nil || s.db.PingContext(ctx) != nil {
		components["database"] = "error"
		ready = false
	}

	if !s.keystoreReady(ctx) {
		components["keystore"] = "error"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

func (s *Server) keystoreReady(ctx context.Context) bool {
	if s.keys == nil {
		return false
	}
	keys, release := s.keys.Snapshot()
	defer release()
	for _, alias := range []string{keystoreDomain.AliasFederationKey, keystoreDomain.AliasKeyEncryptionKey} {
		ok, err := keys.ContainsAlias(ctx, alias)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
