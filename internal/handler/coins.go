package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradescript/internal/auth"
	"tradescript/internal/repository"
)

type CoinsHandler struct {
	Repo repository.Repository
}

func (h *CoinsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/coins")
	g.GET("/balance", h.balance)
	g.GET("/ledger", h.ledger)
	g.POST("/grant", h.grant)
}

// @Summary Current coin balance
// @Tags coins
// @Success 200 {object} map[string]any
// @Router /api/v1/coins/balance [get]
func (h *CoinsHandler) balance(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	// Re-read so a sweep that just debited is visible.
	fresh, err := h.Repo.GetUserByID(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if fresh == nil {
		Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	Ok(c, map[string]any{"user_id": fresh.ID, "coins": fresh.Coins}, nil)
}

// @Summary Coin ledger entries
// @Tags coins
// @Success 200 {object} map[string]any
// @Router /api/v1/coins/ledger [get]
func (h *CoinsHandler) ledger(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	params := repository.ListCoinLedgerParams{
		Limit:  limit,
		Offset: offset,
		Since:  timeQueryPtr(c, "since"),
	}
	if !user.IsAdmin() {
		params.UserID = &user.ID
	} else if v := uint64(intQuery(c, "user_id", 0)); v != 0 {
		params.UserID = &v
	}
	if v := strings.TrimSpace(c.Query("action")); v != "" {
		params.Action = &v
	}

	items, err := h.Repo.ListCoinLedger(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

type grantCoinsRequest struct {
	UserID uint64 `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// @Summary Grant coins to a user (admin)
// @Tags coins
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/coins/grant [post]
func (h *CoinsHandler) grant(c *gin.Context) {
	user := auth.CurrentUser(c)
	if !user.IsAdmin() {
		Error(c, http.StatusForbidden, "admin only", nil)
		return
	}
	var req grantCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.UserID == 0 || req.Amount <= 0 {
		Error(c, http.StatusBadRequest, "user_id and positive amount required", nil)
		return
	}
	entry, err := h.Repo.GrantCoins(c.Request.Context(), req.UserID, req.Amount, strings.TrimSpace(req.Reason), user.Email)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, entry, nil)
}
