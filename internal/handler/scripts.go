package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tradescript/internal/auth"
	"tradescript/internal/models"
	"tradescript/internal/repository"
	"tradescript/internal/strategy"
)

type ScriptsHandler struct {
	Repo repository.Repository
}

func (h *ScriptsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/scripts")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id/activation", h.setActivation)
}

type createScriptRequest struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Content string `json:"content"`
}

// @Summary Create a strategy script
// @Tags scripts
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/scripts [post]
func (h *ScriptsHandler) create(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	var req createScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Name == "" || req.Symbol == "" || strings.TrimSpace(req.Content) == "" {
		Error(c, http.StatusBadRequest, "name, symbol and content required", nil)
		return
	}

	// Reject scripts that can never evaluate; authors get the field-level
	// reason up front instead of a FAILED sweep outcome later.
	if _, err := strategy.Parse(req.Content); err != nil {
		var synErr *strategy.SyntaxError
		if errors.As(err, &synErr) {
			Error(c, http.StatusBadRequest, synErr.Error(), map[string]any{
				"field":  synErr.Field,
				"reason": synErr.Reason,
			})
			return
		}
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	item := &models.Script{
		UserID:  user.ID,
		Name:    req.Name,
		Symbol:  req.Symbol,
		Content: req.Content,
	}
	if err := h.Repo.CreateScript(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List own scripts
// @Tags scripts
// @Success 200 {object} map[string]any
// @Router /api/v1/scripts [get]
func (h *ScriptsHandler) list(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	items, err := h.Repo.ListScriptsByUser(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Get one script
// @Tags scripts
// @Success 200 {object} map[string]any
// @Router /api/v1/scripts/{id} [get]
func (h *ScriptsHandler) get(c *gin.Context) {
	script, ok := h.loadOwned(c)
	if !ok {
		return
	}
	Ok(c, script, nil)
}

type setActivationRequest struct {
	Timeframe string `json:"timeframe"`
	Enabled   bool   `json:"enabled"`
}

// @Summary Enable or disable the bot for one (script, timeframe)
// @Description Enabling stamps the gate timestamp; candles older than it never execute.
// @Tags scripts
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/scripts/{id}/activation [put]
func (h *ScriptsHandler) setActivation(c *gin.Context) {
	script, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req setActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Timeframe = strings.TrimSpace(req.Timeframe)
	if req.Timeframe == "" {
		Error(c, http.StatusBadRequest, "timeframe required", nil)
		return
	}

	var startedAt *time.Time
	if req.Enabled {
		now := time.Now().UTC()
		startedAt = &now
	}
	if err := h.Repo.SetActivationEnabled(c.Request.Context(), script.UserID, script.ID, req.Timeframe, req.Enabled, startedAt); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	gate, err := h.Repo.GetActivation(c.Request.Context(), script.UserID, script.ID, req.Timeframe)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gate, nil)
}

func (h *ScriptsHandler) loadOwned(c *gin.Context) (*models.Script, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid script id", nil)
		return nil, false
	}
	script, err := h.Repo.GetScriptByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if script == nil {
		Error(c, http.StatusNotFound, "script not found", nil)
		return nil, false
	}
	user := auth.CurrentUser(c)
	if user == nil || (script.UserID != user.ID && !user.IsAdmin()) {
		Error(c, http.StatusForbidden, "not your script", nil)
		return nil, false
	}
	return script, true
}
