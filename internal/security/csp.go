package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
)

const (
	nonceKey   = "csp-nonce"
	nonceBytes = 18
)

// nonceToken is replaced by the per-request nonce in directive sources.
const nonceToken = "{nonce}"

// uploadPageDirectives only lets the page talk to its own origin. Inline
// scripts and styles need the request nonce.
var uploadPageDirectives = [][2]string{
	{"default-src", "'self'"},
	{"script-src", "'self' 'nonce-{nonce}'"},
	{"style-src", "'self' 'nonce-{nonce}'"},
	{"img-src", "'self' data:"},
	{"connect-src", "'self'"},
	{"frame-ancestors", "'none'"},
	{"base-uri", "'self'"},
	{"form-action", "'self'"},
}

// GenerateNonce returns a base64 nonce from the system CSPRNG.
func GenerateNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// CSPMiddleware sets a nonce-based Content-Security-Policy for the upload
// page. Templates read the nonce through GetNonce.
func CSPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := GenerateNonce()
		if err != nil {
			_ = c.Error(apperrors.NewInternalError("failed to generate CSP nonce", err))
			c.Abort()
			return
		}

		c.Set(nonceKey, nonce)
		c.Header("Content-Security-Policy", buildCSPPolicy(nonce))
		c.Next()
	}
}

// GetNonce returns the request nonce, or "" outside CSPMiddleware.
func GetNonce(c *gin.Context) string {
	nonce, _ := c.Value(nonceKey).(string)
	return nonce
}

func buildCSPPolicy(nonce string) string {
	parts := make([]string, len(uploadPageDirectives))
	for i, d := range uploadPageDirectives {
		parts[i] = d[0] + " " + strings.ReplaceAll(d[1], nonceToken, nonce)
	}
	return strings.Join(parts, "; ")
}
