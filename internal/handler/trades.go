package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradescript/internal/auth"
	"tradescript/internal/repository"
)

type TradesHandler struct {
	Repo repository.Repository
}

func (h *TradesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/trades")
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

// @Summary List trades
// @Tags trades
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Param status query string false "filter by status"
// @Success 200 {object} map[string]any
// @Router /api/v1/trades [get]
func (h *TradesHandler) list(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	params := repository.ListTradesParams{
		Limit:   limit,
		Offset:  offset,
		Since:   timeQueryPtr(c, "since"),
		OrderBy: "created_at",
	}
	// Non-admins only ever see their own trades.
	if !user.IsAdmin() {
		params.UserID = &user.ID
	} else if v := uint64(intQuery(c, "user_id", 0)); v != 0 {
		params.UserID = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		upper := strings.ToUpper(v)
		params.Status = &upper
	}
	if v := uint64(intQuery(c, "script_id", 0)); v != 0 {
		params.ScriptID = &v
	}

	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary Get one trade
// @Tags trades
// @Success 200 {object} map[string]any
// @Router /api/v1/trades/{id} [get]
func (h *TradesHandler) get(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	item, err := h.Repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	if item.UserID != user.ID && !user.IsAdmin() {
		Error(c, http.StatusForbidden, "not your trade", nil)
		return
	}
	Ok(c, item, nil)
}
