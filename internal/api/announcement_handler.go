package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/goodpass/backoffice/internal/repository/postgres"
	"github.com/goodpass/backoffice/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AnnouncementHandler manages platform notices.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
	logger        *zap.Logger
}

func NewAnnouncementHandler(announcements *service.AnnouncementService, logger *zap.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, logger: logger}
}

// RegisterRoutes wires the list route on the viewer group and write routes
// on the admin group.
func (h *AnnouncementHandler) RegisterRoutes(read, manage *echo.Group) {
	read.GET("/announcements", h.List)
	manage.POST("/announcements", h.Create)
	manage.PUT("/announcements/:id", h.Update)
	manage.DELETE("/announcements/:id", h.Delete)
}

func (h *AnnouncementHandler) List(c echo.Context) error {
	announcements, err := h.announcements.List(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list announcements", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list announcements"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"announcements": announcements})
}

type announcementRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"required"`
	Audience  string `json:"audience" validate:"required,oneof=all individual business"`
	Published bool   `json:"published"`
}

func (h *AnnouncementHandler) Create(c echo.Context) error {
	actor, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	var req announcementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	a := &domain.Announcement{
		Title:     req.Title,
		Body:      req.Body,
		Audience:  req.Audience,
		Published: req.Published,
	}
	if err := h.announcements.Create(c.Request().Context(), actor, a); err != nil {
		h.logger.Error("failed to create announcement", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create announcement"})
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AnnouncementHandler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid announcement id"})
	}
	actor, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	var req announcementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	a := &domain.Announcement{
		ID:        id,
		Title:     req.Title,
		Body:      req.Body,
		Audience:  req.Audience,
		Published: req.Published,
	}
	if err := h.announcements.Update(c.Request().Context(), actor, a); err != nil {
		if errors.Is(err, postgres.ErrAnnouncementNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "announcement not found"})
		}
		h.logger.Error("failed to update announcement", zap.Int64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update announcement"})
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AnnouncementHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid announcement id"})
	}
	actor, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	if err := h.announcements.Delete(c.Request().Context(), actor, id); err != nil {
		if errors.Is(err, postgres.ErrAnnouncementNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "announcement not found"})
		}
		h.logger.Error("failed to delete announcement", zap.Int64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete announcement"})
	}
	return c.NoContent(http.StatusNoContent)
}
