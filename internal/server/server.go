package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/cache"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/config"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/database"
	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/frontend"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/middleware"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/privacy"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/security"
)

// RunsPrefix is the cached part of the API.
const RunsPrefix = "/api/v1/runs/"

// shutdownTimeout bounds in-flight requests on stop.
const shutdownTimeout = 30 * time.Second

// Deps are the collaborators the server is built from. History is optional:
// leave DB nil to serve predictions only.
type Deps struct {
	Config    *config.Config
	Predictor *analysis.Predictor
	Logger    *monitoring.Logger
	Metrics   *monitoring.Metrics

	DB         *database.DB
	Repository *database.Repository
	Privacy    *privacy.Service
}

// Server is the HTTP surface over the scoring pipeline.
type Server struct {
	cfg       *config.Config
	predictor *analysis.Predictor
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics

	db       *database.DB
	repo     *database.Repository
	recorder *database.Recorder
	privacy  *privacy.Service

	cache       *cache.Cache
	limiter     *ratelimit.RateLimiter
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	page        *frontend.Page

	router  *gin.Engine
	started time.Time
}

// New wires middleware and routes.
func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Predictor == nil {
		return nil, apperrors.NewConfigurationError("server needs a configuration and a predictor", nil)
	}
	if d.Logger == nil {
		d.Logger = monitoring.NewNopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = monitoring.NewMetrics()
	}

	dist, err := frontend.GetDistFS()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to open embedded page", err)
	}
	page, err := frontend.NewPage(dist)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load embedded page", err)
	}

	cfg := d.Config
	s := &Server{
		cfg:       cfg,
		predictor: d.Predictor,
		logger:    d.Logger,
		metrics:   d.Metrics,
		db:        d.DB,
		repo:      d.Repository,
		privacy:   d.Privacy,
		cache:     cache.NewCache(cfg.Server.CacheTTL),
		limiter: ratelimit.NewRateLimiter(ratelimit.Config{
			PerMinute: cfg.Server.RatePerMin,
			IdleTTL:   time.Hour,
		}, d.Metrics),
		security: security.NewSecurityMiddleware(security.SecurityConfig{
			MaxBodyBytes:   cfg.MaxUploadBytes(),
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		page:        page,
		started:     time.Now(),
	}
	if s.repo == nil && s.db != nil {
		s.repo = database.NewRepository(s.db, nil)
	}
	if s.repo != nil {
		s.recorder = database.NewRecorder(s.repo)
		if s.privacy == nil {
			s.privacy = privacy.NewService(s.repo, cfg.History.RetentionDays, s.logger)
		}
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestID())
	r.Use(s.compression.Handler())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.RecoveryHandler())
	r.Use(apperrors.ErrorHandler())

	if len(s.cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.Server.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", monitoring.RequestIDHeader},
			ExposeHeaders: []string{monitoring.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.ValidateContentType)
	r.Use(s.security.LimitBody)
	r.Use(s.limiter.IPRateLimitMiddleware())
	r.Use(s.cache.Middleware(RunsPrefix, s.metrics, s.logger))

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFoundError("route", c.Request.URL.Path))
	})

	r.GET("/", security.CSPMiddleware(), s.page.Index)
	r.GET("/assets/*filepath", s.page.Assets)
	r.GET("/example.xlsx", s.handleTemplate)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)

	api := r.Group("/api/v1")
	api.POST("/predict", s.handlePredict)
	api.POST("/predict/upload",
		s.limiter.EndpointRateLimitMiddleware("upload", uploadPerMinute(s.cfg.Server.RatePerMin)),
		s.handleUpload)

	if s.repo != nil {
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.DELETE("/employees/:id/history", s.handleForgetEmployee)
		api.GET("/privacy/policy", s.handlePrivacyPolicy)
	}

	return r
}

// uploadPerMinute keeps spreadsheet uploads well under the general limit.
func uploadPerMinute(perMinute int) int {
	return max(perMinute/6, 1)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured port until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.limiter.Run(ctx)
	if s.privacy != nil {
		s.privacy.ScheduleCleanup(ctx, 24*time.Hour)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.SystemLogger("server_start", "listening on "+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return apperrors.NewInternalError("server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.SystemLogger("server_stop", "draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return apperrors.NewInternalError("server forced to shutdown", err)
	}
	return nil
}

// Close releases background resources. The database is owned by the caller.
func (s *Server) Close() {
	s.cache.Close()
}
