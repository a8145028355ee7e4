package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goodpass/backoffice/internal/domain"
	"github.com/goodpass/backoffice/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ActivityHandler serves the admin activity log.
type ActivityHandler struct {
	activity  *service.ActivityService
	retention time.Duration
	logger    *zap.Logger
}

func NewActivityHandler(activity *service.ActivityService, retention time.Duration, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, retention: retention, logger: logger}
}

func (h *ActivityHandler) RegisterRoutes(read, super *echo.Group) {
	read.GET("/activity", h.List)
	read.GET("/activity/search", h.Search)
	super.POST("/activity/archive", h.TriggerArchive)
}

// List handles GET /activity with optional filters.
func (h *ActivityHandler) List(c echo.Context) error {
	filter := domain.ActivityFilter{Limit: 50}

	if v := c.QueryParam("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid actor_id"})
		}
		filter.ActorID = &id
	}
	if v := c.QueryParam("action"); v != "" {
		action := domain.ActivityAction(v)
		filter.Action = &action
	}
	if v := c.QueryParam("target_id"); v != "" {
		filter.TargetID = &v
	}
	if v := c.QueryParam("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid start_time, expected RFC3339"})
		}
		filter.StartTime = &t
	}
	if v := c.QueryParam("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid end_time, expected RFC3339"})
		}
		filter.EndTime = &t
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	page, err := h.activity.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("failed to list activity events", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list activity events"})
	}
	return c.JSON(http.StatusOK, page)
}

// Search handles GET /activity/search?q=...
func (h *ActivityHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events, err := h.activity.Search(c.Request().Context(), query, limit)
	if err != nil {
		h.logger.Error("activity search failed", zap.String("query", query), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "activity search failed"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// TriggerArchive handles POST /activity/archive. It runs the same
// archive-then-purge pass the scheduler runs, on demand.
func (h *ActivityHandler) TriggerArchive(c echo.Context) error {
	if err := h.activity.ArchiveExpired(c.Request().Context(), h.retention); err != nil {
		h.logger.Error("manual activity archive failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "activity archive failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "archived"})
}
