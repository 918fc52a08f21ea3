package server

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/ingest"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

const (
	// RequestSource names JSON bodies in reports and logs.
	RequestSource = "request.json"

	defaultRunsLimit = 20
	maxRunsLimit     = 200

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// PredictResponse is a batch report plus the id it was stored under.
type PredictResponse struct {
	*analysis.BatchReport
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	m := s.predictor.Model()
	sch := s.predictor.Schema()

	status := http.StatusOK
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"model": gin.H{
			"loaded":        true,
			"kind":          m.Kind(),
			"convention":    m.Convention().Name,
			"schema_source": string(sch.Source),
			"features":      sch.Len(),
		},
	}

	if s.db != nil {
		history := gin.H{"enabled": true, "recorder": s.recorder.Stats()}
		if err := s.db.Check(c.Request.Context()); err != nil {
			history["error"] = err.Error()
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		health["history"] = history
	} else {
		health["history"] = gin.H{"enabled": false}
	}

	c.JSON(status, health)
}

func (s *Server) handleMetrics(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["cache"] = s.cache.Stats()
	stats["rate_limit"] = s.limiter.GetStats()
	stats["compression"] = s.compression.GetStats()
	if s.db != nil {
		stats["database_pool"] = s.db.GetPoolStats()
	}
	c.JSON(http.StatusOK, stats)
}

// handlePredict scores a JSON document: one record, a bare list, or an
// object with an "employees" list.
func (s *Server) handlePredict(c *gin.Context) {
	doc, err := ingest.DecodeJSON(RequestSource, c.Request.Body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.score(c, RequestSource, doc.Records)
}

// handleUpload scores a spreadsheet, CSV or JSON file sent as the "file"
// form field.
func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if tooLarge := apperrors.ToAppError(err); tooLarge.HTTPStatus == http.StatusRequestEntityTooLarge {
			_ = c.Error(tooLarge)
			return
		}
		_ = c.Error(apperrors.NewValidationError("multipart field \"file\" is required", err.Error()))
		return
	}
	defer apperrors.SafeClose(file, "upload")

	format, err := ingest.FormatOf(header.Filename)
	if err != nil {
		_ = c.Error(err)
		return
	}

	records, err := ingest.Read(header.Filename, format, file, s.cfg.SheetOptions())
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.score(c, header.Filename, records)
}

// score runs the batch and records it when history is on. A history failure
// does not fail the request; the report is still returned without a run id.
func (s *Server) score(c *gin.Context, source string, records []types.RawEmployeeRecord) {
	ctx := c.Request.Context()
	report := s.predictor.ScoreBatch(ctx, source, records)
	resp := PredictResponse{BatchReport: report}

	if s.recorder != nil {
		run, err := s.recorder.Record(ctx, report)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("source", source).
				Str("request_id", c.GetString(monitoring.RequestIDKey)).
				Msg("Run not stored in history")
		} else {
			resp.RunID = run.ID
			c.Header("Location", RunsPrefix+run.ID)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			_ = c.Error(apperrors.NewValidationError("limit must be between 1 and "+strconv.Itoa(maxRunsLimit), raw))
			return
		}
		limit = n
	}

	runs, err := s.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	report, err := s.repo.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleForgetEmployee erases one employee's stored results. Cached run
// reports may contain them, so the cache is dropped too.
func (s *Server) handleForgetEmployee(c *gin.Context) {
	employeeID := c.Param("id")
	n, err := s.privacy.ForgetEmployee(c.Request.Context(), employeeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.cache.Clear()

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) handlePrivacyPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.privacy.GetDataRetentionInfo())
}

// handleTemplate returns an empty survey workbook laid out the way uploads
// are read.
func (s *Server) handleTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := ingest.WriteTemplate(&buf, s.cfg.SheetOptions()); err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="example.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
