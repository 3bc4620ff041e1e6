package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FieldErrors maps a field name to the reason it failed validation.
type FieldErrors map[string]string

// ValidationError rejects a request with a structured 400 response.
type ValidationError struct {
	Message string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// Invalid creates a ValidationError with a message.
func Invalid(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// InvalidFields creates a ValidationError carrying per-field details.
func InvalidFields(fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

// WithField adds a field-level detail and returns the error for chaining.
func (e *ValidationError) WithField(field, reason string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(FieldErrors)
	}
	e.Fields[field] = reason
	return e
}

// UnauthorizedError rejects a request with a 403 response.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// Unauthorized creates an UnauthorizedError.
func Unauthorized(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// NotFoundError rejects a request with a 404 response.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return "not found"
}

// NotFound creates a NotFoundError for the named resource.
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ErrorReporter receives errors that could not be mapped to a client status,
// including recovered panics. Implementations must be safe for concurrent use.
type ErrorReporter interface {
	ReportError(ctx context.Context, err error)
}

// ErrorReporterFunc adapts a function to the ErrorReporter interface.
type ErrorReporterFunc func(ctx context.Context, err error)

func (f ErrorReporterFunc) ReportError(ctx context.Context, err error) { f(ctx, err) }

func newLogErrorReporter(logger *zap.Logger) ErrorReporter {
	log := logger.Named("errors")
	return ErrorReporterFunc(func(_ context.Context, err error) {
		log.Error("Unhandled error", zap.Error(err))
	})
}

// Fail records err on the context and aborts the handler chain. The error
// middleware converts it to a response after the chain unwinds.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// errorHandler recovers panics and maps recorded errors to status codes:
// validation 400, unauthorized 403, not-found 404, everything else 500 with
// a report to the error reporter.
func errorHandler(logger *zap.Logger, reporter ErrorReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				logger.Error("Panic while handling request",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				reporter.ReportError(c.Request.Context(), err)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		writeError(c, logger, reporter, last.Err)
	}
}

func writeError(c *gin.Context, logger *zap.Logger, reporter ErrorReporter, err error) {
	var (
		validation   *ValidationError
		unauthorized *UnauthorizedError
		notFound     *NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Error()}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": unauthorized.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	default:
		logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		reporter.ReportError(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
