package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/goodpass/backoffice/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultPageSize = 10

// ReportHandler serves the community-report moderation table.
type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/reports", h.List)
}

// List handles GET /reports with filter and pagination query parameters.
func (h *ReportHandler) List(c echo.Context) error {
	q := domain.NewReportQuery()
	q.Search = c.QueryParam("search")
	if v := c.QueryParam("report_status"); v != "" {
		q.ReportStatus = v
	}
	if v := c.QueryParam("verification_status"); v != "" {
		q.VerificationStatus = v
	}
	if v := c.QueryParam("reporter_type"); v != "" {
		q.ReporterType = v
	}
	if v := c.QueryParam("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid start_date, expected YYYY-MM-DD"})
		}
		q.StartDate = &t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid end_date, expected YYYY-MM-DD"})
		}
		q.EndDate = &t
	}

	page := 1
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := defaultPageSize
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	result, err := h.reports.List(c.Request().Context(), q, pageSize, page)
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list reports"})
	}

	return c.JSON(http.StatusOK, result)
}
