package web

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ktlib-org/web/pkg/config"
	"github.com/ktlib-org/web/pkg/trace"
)

// Option configures a Server at construction time.
type Option func(*Server)

// WithConfig sets the full configuration. Without it the server runs on
// config.Default; use config.Load for file and WEB_* environment handling.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithLogger sets the logger. Without it a logger is built from the
// configured logging level and format.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithErrorReporter sets the collaborator that receives unmapped errors and
// recovered panics. Defaults to a logger-backed reporter.
func WithErrorReporter(r ErrorReporter) Option {
	return func(s *Server) { s.errorReporter = r }
}

// WithTraceReporter sets the collaborator that receives finished request
// traces. Defaults to a logger-backed reporter.
func WithTraceReporter(r trace.Reporter) Option {
	return func(s *Server) { s.traceReporter = r }
}

// ExtraBuilder derives additional trace metadata from the request. It runs
// after the handler, just before the trace is finished and reported.
type ExtraBuilder func(c *gin.Context) map[string]any

// WithTraceExtras sets the pluggable trace metadata builder.
func WithTraceExtras(b ExtraBuilder) Option {
	return func(s *Server) { s.extras = b }
}

// WithOpenAPIDoc supplies the OpenAPI document JSON served at /openapi.
// Without it the swag registry is consulted, so applications that import
// their swag-generated docs package need no explicit document.
func WithOpenAPIDoc(doc string) Option {
	return func(s *Server) { s.openAPIDoc = doc }
}

// WithRouters adds routers to this server only, alongside anything in the
// package registry.
func WithRouters(rs ...Router) Option {
	return func(s *Server) { s.routers = append(s.routers, rs...) }
}
