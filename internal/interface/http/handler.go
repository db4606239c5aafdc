package http

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
	"github.com/jlin-dev/carbonlens/internal/domain/recommend"
	"github.com/jlin-dev/carbonlens/internal/infra/exportstore"
	apperrors "github.com/jlin-dev/carbonlens/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	analyticsSvc analytics.Service
	recommendSvc recommend.Service
	archiver     exportstore.Archiver
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(analyticsSvc analytics.Service, recommendSvc recommend.Service, archiver exportstore.Archiver, logger *slog.Logger) *Handler {
	return &Handler{
		analyticsSvc: analyticsSvc,
		recommendSvc: recommendSvc,
		archiver:     archiver,
		logger:       logger.With("component", "http.handler"),
	}
}

// Dashboard returns the reconciled snapshot for the analytics view.
func (h *Handler) Dashboard(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}

	snapshot, err := h.analyticsSvc.Dashboard(c.Request.Context(), analytics.DashboardRequest{
		Tenant:      tenantFrom(c),
		Granularity: parseGranularity(c),
		Window:      window,
	})
	if err != nil {
		abortWithError(c, mapDomainError(err, "dashboard_failed"))
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Timeline returns the stacked per-scope series.
func (h *Handler) Timeline(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}

	resp, err := h.analyticsSvc.Timeline(c.Request.Context(), analytics.TimelineRequest{
		Tenant:      tenantFrom(c),
		Granularity: parseGranularity(c),
		Window:      window,
		LastN:       parseIntQuery(c, "last"),
	})
	if err != nil {
		abortWithError(c, mapDomainError(err, "timeline_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Categories returns per-category aggregates.
func (h *Handler) Categories(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}

	aggregates, err := h.analyticsSvc.Categories(c.Request.Context(), tenantFrom(c),
		analytics.Filters{Window: window}, parseIntQuery(c, "top"))
	if err != nil {
		abortWithError(c, mapDomainError(err, "categories_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": aggregates})
}

// Emitters returns the top emitter ranking.
func (h *Handler) Emitters(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}

	emitters, err := h.analyticsSvc.Emitters(c.Request.Context(), tenantFrom(c),
		analytics.Filters{Window: window}, parseIntQuery(c, "limit"))
	if err != nil {
		abortWithError(c, mapDomainError(err, "emitters_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"emitters": emitters})
}

// Radar returns the multi-axis category comparison.
func (h *Handler) Radar(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}

	result, err := h.analyticsSvc.Radar(c.Request.Context(), tenantFrom(c), analytics.Filters{Window: window})
	if err != nil {
		abortWithError(c, mapDomainError(err, "radar_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Export streams the flat activity rows as CSV or JSON and archives a copy
// best effort.
func (h *Handler) Export(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "json" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "format must be csv or json", nil))
		return
	}

	tenant := tenantFrom(c)
	rows, err := h.analyticsSvc.Export(c.Request.Context(), tenant, analytics.Filters{Window: window})
	if err != nil {
		abortWithError(c, mapDomainError(err, "export_failed"))
		return
	}

	payload, contentType, err := encodeExport(rows, format)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "export_failed", "failed to encode export", err))
		return
	}

	if key, archiveErr := h.archiver.Archive(c.Request.Context(), tenant, format, payload); archiveErr != nil {
		h.logger.Warn("export archive failed", "tenant", tenant, "error", archiveErr)
	} else if key != "" {
		c.Header("X-Archive-Key", key)
	}

	c.Header("Content-Disposition", "attachment; filename=emissions-export."+format)
	c.Data(http.StatusOK, contentType, payload)
}

// Recommendations returns the cached or freshly generated suggestions.
func (h *Handler) Recommendations(c *gin.Context) {
	refresh := strings.EqualFold(c.Query("refresh"), "true")
	resp, err := h.recommendSvc.Recommendations(c.Request.Context(), recommend.Request{
		Tenant:  tenantFrom(c),
		Refresh: refresh,
	})
	if err != nil {
		abortWithError(c, mapDomainError(err, "recommendations_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveRecommendation marks one suggestion as saved.
func (h *Handler) SaveRecommendation(c *gin.Context) {
	if err := h.recommendSvc.Save(c.Request.Context(), tenantFrom(c), c.Param("id")); err != nil {
		abortWithError(c, mapDomainError(err, "recommendations_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// ImplementRecommendation marks one suggestion as implemented.
func (h *Handler) ImplementRecommendation(c *gin.Context) {
	if err := h.recommendSvc.MarkImplemented(c.Request.Context(), tenantFrom(c), c.Param("id")); err != nil {
		abortWithError(c, mapDomainError(err, "recommendations_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// InvalidateRecommendations drops the tenant's cached suggestions.
func (h *Handler) InvalidateRecommendations(c *gin.Context) {
	if err := h.recommendSvc.Invalidate(c.Request.Context(), tenantFrom(c)); err != nil {
		abortWithError(c, mapDomainError(err, "recommendations_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

func encodeExport(rows []analytics.FlatRow, format string) ([]byte, string, error) {
	if format == "json" {
		payload, err := json.Marshal(gin.H{"rows": rows})
		return payload, "application/json", err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(analytics.CSVHeader()); err != nil {
		return nil, "", err
	}
	for _, row := range rows {
		if err := writer.Write(row.CSVRecord()); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "text/csv", nil
}

func mapDomainError(err error, fallbackCode string) *HTTPError {
	status := http.StatusInternalServerError
	code := fallbackCode
	switch {
	case apperrors.IsCode(err, "invalid_input"):
		status = http.StatusBadRequest
		code = "invalid_request"
	case apperrors.IsCode(err, "not_found"):
		status = http.StatusNotFound
		code = "not_found"
	case apperrors.IsCode(err, "upstream_unavailable"):
		status = http.StatusBadGateway
		code = "upstream_unavailable"
	case apperrors.IsCode(err, "recommendation_error"):
		status = http.StatusBadGateway
		code = "recommendation_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func parseGranularity(c *gin.Context) analytics.Granularity {
	switch strings.ToLower(c.Query("granularity")) {
	case "day":
		return analytics.GranularityDay
	case "year":
		return analytics.GranularityYear
	case "month":
		return analytics.GranularityMonth
	default:
		return ""
	}
}

func parseWindow(c *gin.Context) (analytics.Window, error) {
	var window analytics.Window
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return analytics.Window{}, err
		}
		window.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return analytics.Window{}, err
		}
		window.To = t
	}
	return window, nil
}

func parseIntQuery(c *gin.Context, name string) int {
	v := c.Query(name)
	if v == "" {
		return 0
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
