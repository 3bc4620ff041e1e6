// Package web wraps gin in a standard server configuration. It mounts
// registered router objects onto a shared engine, wires the cross-cutting
// middleware every service needs (CORS, error mapping, session cookie
// issuance, request tracing, OpenAPI exposure), and exposes a process-wide
// server with Start and Test entry points. All HTTP parsing, routing, and
// connection handling belongs to gin; this package only configures it.
package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ktlib-org/web/pkg/config"
	"github.com/ktlib-org/web/pkg/logging"
	"github.com/ktlib-org/web/pkg/openapi"
	"github.com/ktlib-org/web/pkg/trace"
)

// Server is a configured gin engine with lifecycle management.
type Server struct {
	cfg           *config.Config
	logger        *zap.Logger
	errorReporter ErrorReporter
	traceReporter trace.Reporter
	extras        ExtraBuilder
	openAPIDoc    string
	routers       []Router

	buildOnce sync.Once
	engine    *gin.Engine
}

// New creates a server. Most applications use the package-wide Instance
// instead and only construct servers directly in tests.
func New(opts ...Option) *Server {
	s := &Server{cfg: config.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		logger, err := logging.NewLogger(s.cfg.Logging)
		if err != nil {
			logger = zap.NewNop()
		}
		s.logger = logger
	}
	if s.errorReporter == nil {
		s.errorReporter = newLogErrorReporter(s.logger)
	}
	if s.traceReporter == nil {
		s.traceReporter = trace.NewLogReporter(s.logger)
	}

	return s
}

var (
	defaultServer *Server
	defaultOnce   sync.Once
)

// Instance returns the process-wide server, creating it on first use.
// Options are honored only on the call that creates it.
func Instance(opts ...Option) *Server {
	defaultOnce.Do(func() {
		defaultServer = New(opts...)
	})
	return defaultServer
}

// Start runs the process-wide server until the context is canceled.
func Start(ctx context.Context, opts ...Option) error {
	return Instance(opts...).Start(ctx)
}

// Test builds the process-wide server and serves it from an httptest server.
func Test(opts ...Option) *httptest.Server {
	return Instance(opts...).Test()
}

// AddRouter adds routers to this server. Must be called before the engine
// is built, so before Start, Test, or Handler.
func (s *Server) AddRouter(rs ...Router) {
	s.routers = append(s.routers, rs...)
}

// Handler builds the engine on first use and returns it.
func (s *Server) Handler() http.Handler {
	s.buildOnce.Do(func() {
		s.engine = s.buildEngine()
	})
	return s.engine
}

// Start serves HTTP until the context is canceled, then shuts down
// gracefully. It returns the listener error when serving fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Test builds the engine and serves it from an httptest server. The caller
// owns the returned server and must Close it.
func (s *Server) Test() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

// buildEngine assembles the middleware in a fixed order: CORS first, then
// the documentation routes, then request tracing, error mapping, and session
// issuance. Tracing wraps the error mapper so a finished trace carries the
// status the client actually received. gin renders JSON natively, so there
// is no codec to install.
func (s *Server) buildEngine() *gin.Engine {
	if s.cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	e := gin.New()
	e.Use(cors.New(s.corsConfig()))

	if openapi.Enabled(s.cfg.OpenAPI.Enabled, s.cfg.OpenAPI.AllowInProd, s.cfg.Environment.IsProduction()) {
		openapi.Mount(e, s.openAPIDoc)
	}

	e.Use(traceMiddleware(s.traceReporter, s.extras))
	e.Use(errorHandler(s.logger, s.errorReporter))
	e.Use(sessionMiddleware(s.cfg.Environment))

	e.GET("/health", healthHandler)

	for _, r := range registered() {
		r.Routes(e)
	}
	for _, r := range s.routers {
		r.Routes(e)
	}

	return e
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Authorization", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}

	if s.cfg.CORS.AllowAll() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.CORS.OriginList()
		// Credentials cannot be combined with a wildcard origin, so they
		// are only allowed for an explicit origin list.
		cfg.AllowCredentials = true
	}

	return cfg
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// traceMiddleware starts a trace when the request enters, carries it on the
// request context, and reports it once the response is written. The trace is
// reported even when the handler panics.
func traceMiddleware(reporter trace.Reporter, extras ExtraBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := trace.Start(c.Request.Method, c.Request.URL.Path)
		c.Request = c.Request.WithContext(trace.NewContext(c.Request.Context(), t))

		defer func() {
			if extras != nil {
				for k, v := range extras(c) {
					t.SetExtra(k, v)
				}
			}
			t.Finish(c.Writer.Status())
			reporter.Report(c.Request.Context(), t)
		}()

		c.Next()
	}
}
