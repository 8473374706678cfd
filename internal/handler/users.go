package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradescript/internal/auth"
	"tradescript/internal/models"
	"tradescript/internal/repository"
)

type UsersHandler struct {
	Repo repository.Repository

	// StartingCoins seeds every new account's budget.
	StartingCoins int64
}

func (h *UsersHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/users")
	g.POST("", h.create)
	g.GET("/me", h.me)
}

type createUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// @Summary Provision a user (admin)
// @Description Returns the account with its API token and the seeded coin balance.
// @Tags users
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/users [post]
func (h *UsersHandler) create(c *gin.Context) {
	caller := auth.CurrentUser(c)
	if !caller.IsAdmin() {
		Error(c, http.StatusForbidden, "admin only", nil)
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		Error(c, http.StatusBadRequest, "valid email required", nil)
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = "user"
	}
	if role != "user" && role != "admin" {
		Error(c, http.StatusBadRequest, "role must be user or admin", nil)
		return
	}

	token, err := newAPIToken()
	if err != nil {
		Error(c, http.StatusInternalServerError, "token generation failed", nil)
		return
	}
	item := &models.User{
		Email:    req.Email,
		Role:     role,
		APIToken: token,
		Coins:    h.StartingCoins,
	}
	if err := h.Repo.CreateUser(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Current account
// @Tags users
// @Success 200 {object} map[string]any
// @Router /api/v1/users/me [get]
func (h *UsersHandler) me(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	Ok(c, user, nil)
}

func newAPIToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "ts_" + hex.EncodeToString(raw), nil
}
