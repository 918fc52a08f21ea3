package security

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxBodyBytes        int64         `json:"max_body_bytes"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	AllowedContentTypes []string      `json:"allowed_content_types"`
	EnableHSTS          bool          `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:   20 << 20,
		RequestTimeout: 30 * time.Second,
		AllowedContentTypes: []string{
			"application/json",
			"multipart/form-data",
		},
	}
}

// SecurityMiddleware bundles the request hardening handlers.
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	defaults := DefaultSecurityConfig()
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if len(config.AllowedContentTypes) == 0 {
		config.AllowedContentTypes = defaults.AllowedContentTypes
	}
	return &SecurityMiddleware{config: config}
}

// SecurityHeaders adds security headers to responses. Pages that need a
// script policy get it from CSPMiddleware.
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	if sm.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType rejects request bodies in formats the API does not
// read. Bodiless requests pass.
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType == "" {
		c.Next()
		return
	}

	for _, allowed := range sm.config.AllowedContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			c.Next()
			return
		}
	}

	appErr := apperrors.NewValidationError("unsupported content type", contentType)
	appErr.HTTPStatus = http.StatusUnsupportedMediaType
	_ = c.Error(appErr)
	c.Abort()
}

// LimitBody caps how much of the request body handlers can read. Reads past
// the cap fail with *http.MaxBytesError.
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.ContentLength > sm.config.MaxBodyBytes {
		appErr := apperrors.NewValidationError("request body too large", strconv.FormatInt(sm.config.MaxBodyBytes, 10))
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		_ = c.Error(appErr)
		c.Abort()
		return
	}
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// MaxBodyBytes reports the configured body cap.
func (sm *SecurityMiddleware) MaxBodyBytes() int64 {
	return sm.config.MaxBodyBytes
}
