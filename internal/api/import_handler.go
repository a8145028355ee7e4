package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goodpass/backoffice/internal/auth"
	"github.com/goodpass/backoffice/internal/importer"
	"github.com/goodpass/backoffice/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ImportHandler exposes the step-by-step report import workflow. Each
// session walks source selection, field mapping, sanitization and
// confirmation; the handler is a thin translation layer over the service.
type ImportHandler struct {
	imports *service.ImportService
	logger  *zap.Logger
}

func NewImportHandler(imports *service.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{imports: imports, logger: logger}
}

func (h *ImportHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/imports", h.StartSession)
	g.DELETE("/imports/:id", h.EndSession)
	g.GET("/imports/:id", h.State)

	g.POST("/imports/:id/source", h.LoadSource)
	g.POST("/imports/:id/mappings/propose", h.ProposeMappings)
	g.POST("/imports/:id/mappings/accept", h.AcceptSuggestion)
	g.POST("/imports/:id/mappings/reject", h.RejectSuggestion)
	g.POST("/imports/:id/mappings/accept-all", h.AcceptAllPending)
	g.PUT("/imports/:id/mappings", h.SetMapping)
	g.POST("/imports/:id/preview", h.GeneratePreview)

	g.POST("/imports/:id/analyze", h.AnalyzeQuality)
	g.POST("/imports/:id/rules/:rule_id/toggle", h.ToggleRule)
	g.POST("/imports/:id/rules/autofix", h.ApplyAutoFixes)
	g.POST("/imports/:id/sanitize", h.ApplySanitization)

	g.POST("/imports/:id/next", h.Next)
	g.POST("/imports/:id/previous", h.Previous)
	g.POST("/imports/:id/jump", h.JumpTo)
	g.POST("/imports/:id/commit", h.Commit)
}

func (h *ImportHandler) sessionID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func (h *ImportHandler) StartSession(c echo.Context) error {
	id := h.imports.StartSession()
	return c.JSON(http.StatusCreated, map[string]string{"session_id": id.String()})
}

func (h *ImportHandler) EndSession(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	h.imports.EndSession(id)
	return c.NoContent(http.StatusNoContent)
}

// State handles GET /imports/:id, returning the current step and aggregate.
func (h *ImportHandler) State(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	p, err := h.imports.Session(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"step":        p.Step(),
		"can_advance": p.CanAdvance(),
		"data":        p.Snapshot(),
	})
}

// LoadSource handles POST /imports/:id/source. The source type and optional
// endpoint come from query parameters; the body is the raw payload.
func (h *ImportHandler) LoadSource(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	source := importer.Source(c.QueryParam("type"))
	endpoint := c.QueryParam("endpoint")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read payload"})
	}

	if err := h.imports.LoadSource(id, source, endpoint, payload); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		case errors.Is(err, service.ErrUnsupportedSource):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported source type"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ImportHandler) ProposeMappings(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	suggestions, err := h.imports.ProposeMappings(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		}
		h.logger.Error("failed to propose mappings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to propose mappings"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

type suggestionIndexRequest struct {
	Index int `json:"index"`
}

func (h *ImportHandler) AcceptSuggestion(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	var req suggestionIndexRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	previous, err := h.imports.AcceptSuggestion(id, req.Index)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"displaced_source": previous})
}

func (h *ImportHandler) RejectSuggestion(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	var req suggestionIndexRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := h.imports.RejectSuggestion(id, req.Index); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ImportHandler) AcceptAllPending(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	accepted, err := h.imports.AcceptAllPending(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	return c.JSON(http.StatusOK, map[string]int{"accepted": accepted})
}

type setMappingRequest struct {
	TargetField string `json:"target_field" validate:"required"`
	SourceField string `json:"source_field" validate:"required"`
}

func (h *ImportHandler) SetMapping(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	var req setMappingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.imports.SetMapping(id, req.TargetField, req.SourceField); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ImportHandler) GeneratePreview(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	count, err := h.imports.GeneratePreview(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	return c.JSON(http.StatusOK, map[string]int{"mapped_records": count})
}

func (h *ImportHandler) AnalyzeQuality(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	rules, err := h.imports.AnalyzeQuality(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		}
		h.logger.Error("failed to analyze import quality", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to analyze data quality"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *ImportHandler) ToggleRule(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	if err := h.imports.ToggleRule(id, c.Param("rule_id")); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ImportHandler) ApplyAutoFixes(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	applied, err := h.imports.ApplyAutoFixes(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	return c.JSON(http.StatusOK, map[string]int{"applied": applied})
}

func (h *ImportHandler) ApplySanitization(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	result, err := h.imports.ApplySanitization(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) Next(c echo.Context) error {
	return h.navigate(c, func(p *importer.Pipeline) (importer.Step, bool) {
		return p.Next()
	})
}

func (h *ImportHandler) Previous(c echo.Context) error {
	return h.navigate(c, func(p *importer.Pipeline) (importer.Step, bool) {
		return p.Previous()
	})
}

type jumpRequest struct {
	Step int `json:"step" validate:"required,min=1,max=4"`
}

func (h *ImportHandler) JumpTo(c echo.Context) error {
	var req jumpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return h.navigate(c, func(p *importer.Pipeline) (importer.Step, bool) {
		return p.JumpTo(importer.Step(req.Step))
	})
}

func (h *ImportHandler) navigate(c echo.Context, move func(*importer.Pipeline) (importer.Step, bool)) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	p, err := h.imports.Session(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
	}
	step, moved := move(p)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"step":  step,
		"moved": moved,
	})
}

func (h *ImportHandler) Commit(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}
	actor, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	count, err := h.imports.Commit(c.Request().Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import session not found"})
		case errors.Is(err, service.ErrNothingToCommit):
			return c.JSON(http.StatusConflict, map[string]string{"error": "no sanitized records to commit"})
		}
		h.logger.Error("failed to commit import", zap.String("session_id", id.String()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to commit import"})
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": count})
}
