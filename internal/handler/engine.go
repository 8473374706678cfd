package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradescript/internal/auth"
	"tradescript/internal/engine"
	"tradescript/internal/market"
	"tradescript/internal/models"
	"tradescript/internal/repository"
	"tradescript/internal/strategy"
)

type EngineHandler struct {
	Repo        repository.Repository
	Coordinator *engine.Coordinator
	Sweeper     *engine.Sweeper
	Market      engine.CandleSource
}

func (h *EngineHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/engine", h.dispatch)
}

type engineRequest struct {
	ScriptID  uint64 `json:"script_id"`
	Content   string `json:"content"`
	Timeframe string `json:"timeframe"`
	DryRun    *bool  `json:"dry_run"`
}

// @Summary Engine operations
// @Description action=parse validates script content, action=evaluate-script runs one script without side effects, action=evaluate-all triggers a sweep (admin)
// @Tags engine
// @Param action query string true "parse | evaluate-script | evaluate-all"
// @Success 200 {object} map[string]any
// @Router /api/v1/engine [post]
func (h *EngineHandler) dispatch(c *gin.Context) {
	switch strings.TrimSpace(c.Query("action")) {
	case "parse":
		h.parse(c)
	case "evaluate-script":
		h.evaluateScript(c)
	case "evaluate-all":
		h.evaluateAll(c)
	default:
		Error(c, http.StatusBadRequest, "unknown action", nil)
	}
}

func (h *EngineHandler) parse(c *gin.Context) {
	var req engineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}

	content := req.Content
	if content == "" && req.ScriptID != 0 {
		script, ok := h.loadOwnedScript(c, req.ScriptID)
		if !ok {
			return
		}
		content = script.Content
	}
	if strings.TrimSpace(content) == "" {
		Error(c, http.StatusBadRequest, "content or script_id required", nil)
		return
	}

	parsed, err := strategy.Parse(content)
	if err != nil {
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
	Ok(c, parsed, map[string]any{"hash": strategy.Hash(content)})
}

func (h *EngineHandler) evaluateScript(c *gin.Context) {
	if h.Coordinator == nil {
		Error(c, http.StatusInternalServerError, "coordinator unavailable", nil)
		return
	}
	var req engineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.ScriptID == 0 || strings.TrimSpace(req.Timeframe) == "" {
		Error(c, http.StatusBadRequest, "script_id and timeframe required", nil)
		return
	}
	script, ok := h.loadOwnedScript(c, req.ScriptID)
	if !ok {
		return
	}

	parsed, sig, candles, err := h.Coordinator.EvaluateScript(c.Request.Context(), script, req.Timeframe)
	if err != nil {
		var synErr *strategy.SyntaxError
		switch {
		case errors.As(err, &synErr):
			Error(c, http.StatusBadRequest, synErr.Error(), map[string]any{
				"field":  synErr.Field,
				"reason": synErr.Reason,
			})
		case errors.Is(err, strategy.ErrInsufficientHistory):
			Ok(c, map[string]any{
				"signal":  nil,
				"skipped": "insufficient history",
				"candles": len(candles),
			}, nil)
		case errors.Is(err, market.ErrMarketDataUnavailable):
			Error(c, http.StatusBadGateway, err.Error(), nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}

	last := candles[len(candles)-1]
	currentPrice := last.Close
	if h.Market != nil {
		// Live mid price when the book answers; the closed candle otherwise.
		if tick, terr := h.Market.Ticker(c.Request.Context(), script.Symbol); terr == nil && tick.Last > 0 {
			currentPrice = tick.Last
		}
	}
	Ok(c, map[string]any{
		"strategy":      parsed,
		"signal":        sig,
		"current_price": currentPrice,
		"last_candle":   last.OpenTime,
		"candles":       len(candles),
	}, nil)
}

func (h *EngineHandler) evaluateAll(c *gin.Context) {
	if h.Sweeper == nil {
		Error(c, http.StatusInternalServerError, "sweeper unavailable", nil)
		return
	}
	user := auth.CurrentUser(c)
	if !user.IsAdmin() {
		Error(c, http.StatusForbidden, "admin only", nil)
		return
	}
	var req engineRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	dryRun := boolQueryDefault(c, "dry_run", false)
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	report, err := h.Sweeper.RunSweep(c.Request.Context(), dryRun)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, report, map[string]any{"dry_run": dryRun})
}

// loadOwnedScript fetches the script and enforces that the caller owns it or
// is an admin. Writes the error response itself on failure.
func (h *EngineHandler) loadOwnedScript(c *gin.Context, id uint64) (*models.Script, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
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
