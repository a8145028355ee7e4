package api

import (
	"errors"
	"net/http"

	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/repository/postgres"
	"github.com/goodpass/backoffice/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// KYCHandler serves the verification review queue and moderator decisions.
type KYCHandler struct {
	kyc    *service.KYCService
	logger *zap.Logger
}

func NewKYCHandler(kyc *service.KYCService, logger *zap.Logger) *KYCHandler {
	return &KYCHandler{kyc: kyc, logger: logger}
}

// RegisterRoutes wires read routes on the viewer group and decision routes
// on the moderator group.
func (h *KYCHandler) RegisterRoutes(read, decide *echo.Group) {
	read.GET("/kyc/pending", h.PendingReviews)
	read.GET("/kyc/documents/url", h.DocumentURL)
	decide.POST("/kyc/:user_id/approve", h.Approve)
	decide.POST("/kyc/:user_id/reject", h.Reject)
}

// PendingReviews handles GET /kyc/pending
func (h *KYCHandler) PendingReviews(c echo.Context) error {
	reviews, err := h.kyc.PendingReviews(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to load pending reviews", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load pending reviews"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// DocumentURL handles GET /kyc/documents/url?key=...
func (h *KYCHandler) DocumentURL(c echo.Context) error {
	key := c.QueryParam("key")
	if key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "key is required"})
	}
	url, err := h.kyc.DocumentURL(c.Request().Context(), key)
	if err != nil {
		h.logger.Error("failed to sign document url", zap.String("key", key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to sign document url"})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

type approveRequest struct {
	Notes string `json:"notes"`
}

// Approve handles POST /kyc/:user_id/approve
func (h *KYCHandler) Approve(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}
	actor, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	var req approveRequest
	// Body is optional; an empty request approves without notes.
	_ = c.Bind(&req)

	if err := h.kyc.Approve(c.Request().Context(), actor, userID, req.Notes); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		h.logger.Error("failed to approve verification",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to approve verification"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "approved"})
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Reject handles POST /kyc/:user_id/reject
func (h *KYCHandler) Reject(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}
	actor, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.kyc.Reject(c.Request().Context(), actor, userID, req.Reason); err != nil {
		switch {
		case errors.Is(err, service.ErrRejectionReasonRequired):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "rejection reason is required"})
		case errors.Is(err, postgres.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		h.logger.Error("failed to reject verification",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reject verification"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "rejected"})
}
