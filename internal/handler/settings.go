package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"tradescript/internal/auth"
	"tradescript/internal/models"
	"tradescript/internal/repository"
	"tradescript/internal/service"
)

type SettingsHandler struct {
	Repo     repository.Repository
	Settings *service.SystemSettingsService
	Modules  *service.ModuleSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	sys := r.Group("/api/v1/system/switches")
	sys.GET("/:name", h.getSwitch)
	sys.PUT("/:name", h.putSwitch)

	mod := r.Group("/api/v1/modules")
	mod.GET("/:key/settings", h.getModuleSetting)
	mod.PUT("/:key/settings", h.putModuleSetting)
}

// @Summary Read one feature switch
// @Tags settings
// @Success 200 {object} map[string]any
// @Router /api/v1/system/switches/{name} [get]
func (h *SettingsHandler) getSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	key := "feature." + name
	enabled := h.Settings.IsEnabled(c.Request.Context(), key, false)
	Ok(c, map[string]any{"name": name, "key": key, "enabled": enabled}, nil)
}

type putSwitchRequest struct {
	Enabled bool `json:"enabled"`
}

// @Summary Set one feature switch (admin)
// @Tags settings
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/system/switches/{name} [put]
func (h *SettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	user := auth.CurrentUser(c)
	if !user.IsAdmin() {
		Error(c, http.StatusForbidden, "admin only", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	key := "feature." + name
	if err := h.Settings.SetEnabled(c.Request.Context(), key, req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"name": name, "key": key, "enabled": req.Enabled}, nil)
}

// @Summary Read the caller's settings blob for one module
// @Tags settings
// @Success 200 {object} map[string]any
// @Router /api/v1/modules/{key}/settings [get]
func (h *SettingsHandler) getModuleSetting(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "invalid module key", nil)
		return
	}
	item, err := h.Repo.GetModuleSetting(c.Request.Context(), user.ID, key)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	// The engine module always answers with the validated, defaulted view so
	// the UI never renders a half-broken blob.
	if key == service.ModuleKeyEngine {
		Ok(c, h.Modules.EngineConfig(c.Request.Context(), user.ID), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "module setting not found", nil)
		return
	}
	Ok(c, item, nil)
}

type putModuleSettingRequest struct {
	Config any `json:"config"`
}

// @Summary Write the caller's settings blob for one module
// @Tags settings
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/modules/{key}/settings [put]
func (h *SettingsHandler) putModuleSetting(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "invalid module key", nil)
		return
	}
	var req putModuleSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	raw, err := json.Marshal(req.Config)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid config", nil)
		return
	}
	item := &models.ModuleSetting{
		UserID:    user.ID,
		ModuleKey: key,
		Config:    datatypes.JSON(raw),
	}
	if err := h.Repo.UpsertModuleSetting(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	next, _ := h.Repo.GetModuleSetting(c.Request.Context(), user.ID, key)
	Ok(c, next, nil)
}
