package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	// CategoryInputSource covers unreadable files and malformed documents.
	CategoryInputSource ErrorCategory = "input_source"
	// CategorySchemaMismatch is raised when a vector and the scaler or model
	// disagree on dimensionality.
	CategorySchemaMismatch ErrorCategory = "schema_mismatch"
	// CategoryUnsupportedShape is a well-formed document that is neither an
	// object, an object with "employees", nor an array.
	CategoryUnsupportedShape ErrorCategory = "unsupported_shape"
	CategoryConfiguration    ErrorCategory = "configuration"
	CategoryValidation       ErrorCategory = "validation"
	CategoryRateLimit        ErrorCategory = "rate_limit"
	CategoryTimeout          ErrorCategory = "timeout"
	CategoryNotFound         ErrorCategory = "not_found"
	CategoryInternal         ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the category used for routing,
// logging and the HTTP status.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id,omitempty"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	codeStr := strings.ToUpper(string(e.Category)) + "_ERROR"
	if cause := e.ErrBuilder.Unwrap(); cause != nil {
		return fmt.Sprintf("[%s] %s: %v", codeStr, e.ErrBuilder.Msg, cause)
	}
	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// errorResponse is the JSON body written for an AppError.
type errorResponse struct {
	Category   ErrorCategory     `json:"category"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Cause      string            `json:"cause,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"http_status"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

// MarshalJSON renders the error for API clients. It replaces the embedded
// builder's encoding, which requires a cause.
func (e *AppError) MarshalJSON() ([]byte, error) {
	resp := errorResponse{
		Category:   e.Category,
		HTTPStatus: e.HTTPStatus,
		Timestamp:  e.Timestamp,
		RequestID:  e.RequestID,
		StackTrace: e.StackTrace,
	}
	if e.ErrBuilder != nil {
		resp.Code = e.ErrBuilder.Code.String()
		resp.Message = e.ErrBuilder.Msg
		if cause := e.ErrBuilder.Cause; cause != nil {
			resp.Cause = cause.Error()
		}
		if details := e.ErrBuilder.Details.Errors; len(details) > 0 {
			resp.Details = make(map[string]string, len(details))
			for key := range details {
				resp.Details[key] = details.Get(key)
			}
		}
	}
	return json.Marshal(resp)
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func withDetails(builder *errbuilder.ErrBuilder, details map[string]string) *errbuilder.ErrBuilder {
	if len(details) == 0 {
		return builder
	}
	errorMap := errbuilder.ErrorMap{}
	for key, value := range details {
		errorMap.Set(key, errors.New(value))
	}
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap))
}

// NewInputSourceError reports a source that could not be read or parsed.
func NewInputSourceError(source string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("Input source could not be read")

	if cause != nil {
		builder = builder.WithCause(cause)
	}
	builder = withDetails(builder, map[string]string{"source": source})

	return NewAppError(builder, CategoryInputSource, http.StatusBadRequest)
}

// NewUnsupportedShapeError reports a document whose top level is not a record,
// a record list or an object with an "employees" list.
func NewUnsupportedShapeError(source, shape string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("Unsupported document shape: %s", shape))
	builder = withDetails(builder, map[string]string{"source": source, "shape": shape})

	return NewAppError(builder, CategoryUnsupportedShape, http.StatusUnprocessableEntity)
}

// NewSchemaMismatchError reports a vector whose length disagrees with the
// component it was handed to.
func NewSchemaMismatchError(component string, expected, got int) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("%s expects %d features, got %d", component, expected, got))
	builder = withDetails(builder, map[string]string{
		"component": component,
		"expected":  fmt.Sprint(expected),
		"got":       fmt.Sprint(got),
	})

	return NewAppError(builder, CategorySchemaMismatch, http.StatusInternalServerError)
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, details ...interface{}) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if len(details) > 0 {
		builder = withDetails(builder, map[string]string{"validation_details": fmt.Sprintf("%v", details[0])})
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewValidationErrorWithMap creates a validation error using ErrorMap for multiple validation issues
func NewValidationErrorWithMap(validationErrors map[string]string) *AppError {
	errMap := errbuilder.ErrorMap{}

	for field, message := range validationErrors {
		errMap.Set(field, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(message))
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("Multiple validation errors").
		WithDetails(errbuilder.NewErrDetails(errMap))

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded")
	builder = withDetails(builder, map[string]string{"retry_after": retryAfter})

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewNotFoundError reports a missing stored resource.
func NewNotFoundError(resource, id string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%s not found", resource))
	builder = withDetails(builder, map[string]string{"id": id})

	return NewAppError(builder, CategoryNotFound, http.StatusNotFound)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	// Capture stack trace in development/debug mode
	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// captureStackTrace captures a stack trace for debugging
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// IsCategory reports whether err is an AppError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == category
	}
	return false
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			appErr := ToAppError(c.Errors.Last().Err)
			appErr.RequestID = c.GetString("request_id")

			LogError(c, appErr)

			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()
		appErr.RequestID = c.GetString("request_id")

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError. An oversized request body
// wins over whatever error reported it.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	// A body cut off by http.MaxBytesReader may surface wrapped in an
	// input error from whichever decoder was reading it.
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		appErr := NewValidationError("request body too large", tooLarge.Limit)
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		return appErr
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	var level zerolog.Level
	switch err.Category {
	case CategoryValidation, CategoryRateLimit, CategoryInputSource, CategoryUnsupportedShape, CategoryNotFound:
		level = zerolog.WarnLevel
	case CategoryTimeout:
		level = zerolog.InfoLevel
	default:
		level = zerolog.ErrorLevel
	}

	event := log.WithLevel(level).
		Str("error_category", string(err.Category)).
		Interface("error_code", err.ErrBuilder.ErrCode()).
		Int("http_status", err.HTTPStatus).
		Str("ip", c.ClientIP()).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("request_id", err.RequestID)

	if cause := err.ErrBuilder.Unwrap(); cause != nil {
		event = event.AnErr("cause", cause)
	}
	if details := err.ErrBuilder.Details.Errors; len(details) > 0 {
		event = event.Interface("details", details)
	}
	event.Msg(err.ErrBuilder.Msg)

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		log.Debug().Str("trace", err.StackTrace).Msg("stack_trace")
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		log.Warn().Err(err).Str("resource", resourceName).Msg("Failed to close resource")
	}
}
