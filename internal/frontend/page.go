package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/security"
)

var (
	scriptTagRegex = regexp.MustCompile(`<script([^>]*)>`)
	styleTagRegex  = regexp.MustCompile(`<link([^>]*rel=["']stylesheet["'][^>]*)>`)
)

// Page serves the upload page and its static assets.
type Page struct {
	assets http.Handler
	index  *template.Template
}

// NewPage parses index.html from dist and prepares it for per-request
// nonces.
func NewPage(dist fs.FS) (*Page, error) {
	f, err := dist.Open("index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to open index.html: %w", err)
	}
	defer apperrors.SafeClose(f, "index.html")

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read index.html: %w", err)
	}

	tmpl, err := template.New("index").Parse(withNonce(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index.html: %w", err)
	}

	return &Page{
		assets: http.FileServer(http.FS(dist)),
		index:  tmpl,
	}, nil
}

// withNonce tags script and stylesheet elements with a nonce placeholder.
func withNonce(html string) string {
	html = scriptTagRegex.ReplaceAllString(html, `<script nonce="{{.Nonce}}"$1>`)
	return styleTagRegex.ReplaceAllString(html, `<link nonce="{{.Nonce}}"$1>`)
}

// Index renders the page. It expects security.CSPMiddleware earlier in the
// chain.
func (p *Page) Index(c *gin.Context) {
	nonce := security.GetNonce(c)
	if nonce == "" {
		_ = c.Error(apperrors.NewInternalError("CSP nonce missing from context", nil))
		return
	}

	var buf bytes.Buffer
	if err := p.index.Execute(&buf, map[string]string{"Nonce": nonce}); err != nil {
		_ = c.Error(apperrors.NewInternalError("failed to render page", err))
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Assets serves files under /assets/.
func (p *Page) Assets(c *gin.Context) {
	if !strings.HasPrefix(c.Request.URL.Path, "/assets/") {
		_ = c.Error(apperrors.NewNotFoundError("asset", c.Request.URL.Path))
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	p.assets.ServeHTTP(c.Writer, c.Request)
}
