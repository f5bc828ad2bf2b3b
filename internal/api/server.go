// Package api serves the analysis pipeline over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/store"
)

// MountPrefix is the path the original web client calls
const MountPrefix = "/api/fact-check"

// Service is the pipeline surface the handlers need
type Service interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisRecord, error)
	AnalyzeImage(ctx context.Context, up pipeline.ImageUpload) (*model.AnalysisRecord, error)
	List(ctx context.Context, filter store.Filter) ([]*model.AnalysisRecord, error)
	Vote(ctx context.Context, id string, dir model.VoteDirection) (*model.AnalysisRecord, error)
	SetStatus(ctx context.Context, id string, status model.Status) (*model.AnalysisRecord, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP API server
type Server struct {
	svc     Service
	cfg     model.ServerConfig
	auth    model.AuthConfig
	engine  *gin.Engine
	server  *http.Server
	logger  *slog.Logger
	started time.Time
}

// NewServer builds the router. It does not start listening.
func NewServer(svc Service, cfg model.ServerConfig, auth model.AuthConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}

	s := &Server{
		svc:     svc,
		cfg:     cfg,
		auth:    auth,
		engine:  gin.New(),
		logger:  logger,
		started: time.Now(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	if cfg.CORSEnabled {
		s.engine.Use(cors())
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	if s.cfg.MetricsEnabled {
		s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	s.mount(&s.engine.RouterGroup)
	s.mount(s.engine.Group(MountPrefix))
}

func (s *Server) mount(g *gin.RouterGroup) {
	g.POST("/analyze", s.handleAnalyze)
	g.POST("/analyze-image", s.handleAnalyzeImage)
	g.POST("/analyze-multipart", s.handleAnalyzeImage)
	g.GET("/all", s.handleList)

	authorized := g.Group("/")
	authorized.Use(RequireAuth(s.auth))
	authorized.PUT("/:id", s.handleSetStatus)
	authorized.POST("/:id/vote", s.handleVote)
}

// Handler returns the traced root handler
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "veritas")
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.cfg.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+AuthHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
