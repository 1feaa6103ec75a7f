package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/modforge/scriptbox/internal/api/http"
	"github.com/modforge/scriptbox/internal/api/middleware"
	"github.com/modforge/scriptbox/internal/config"
	"github.com/modforge/scriptbox/internal/logging"
	"github.com/modforge/scriptbox/internal/monitoring"
	"github.com/modforge/scriptbox/internal/policy"
	"github.com/modforge/scriptbox/internal/sandbox"
	"github.com/modforge/scriptbox/internal/security"
	"github.com/modforge/scriptbox/internal/ws"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	httpSrv *http.Server
	metrics *monitoring.Metrics
}

// New assembles the service from configuration.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	presets := policy.BuiltinPresets()
	if cfg.Sandbox.PresetFile != "" {
		loaded, err := policy.LoadPresetFile(cfg.Sandbox.PresetFile)
		if err != nil {
			return nil, fmt.Errorf("load presets: %w", err)
		}
		for name, p := range loaded {
			presets[name] = p
		}
	}
	logger.Info("policy presets loaded", zap.Int("count", len(presets)))

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	sb := sandbox.New(
		sandbox.WithLogger(logger.Logger),
		sandbox.WithConsoleLimit(cfg.Sandbox.ConsoleLimit),
		sandbox.WithValidator(security.NewValidator(
			security.WithComplexityThreshold(cfg.Sandbox.ComplexityThreshold),
		)),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(monitoring.Middleware(metrics))

	handlers := apihttp.NewHandlers(sb, presets, metrics, logger, cfg.Sandbox)
	wsHandler := ws.NewHandler(sb, presets, cfg.Sandbox, logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	api := router.Group("/api")
	api.POST("/validate", handlers.Validate)
	api.POST("/execute", handlers.Execute)
	api.GET("/policies", handlers.ListPolicies)
	api.GET("/stats", handlers.GetStats)

	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	return &Server{
		cfg:    cfg,
		logger: logger,
		httpSrv: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		metrics: metrics,
	}, nil
}

// Run starts the server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("starting scriptbox service", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.httpSrv.Shutdown(ctx)
}
