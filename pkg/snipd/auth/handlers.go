package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snipd-io/snipd/pkg/snipd/config"
)

// Handler handles authentication requests
type Handler struct {
	cfg    *config.Config
	tokens *Service
}

// NewHandler creates a new auth handler
func NewHandler(cfg *config.Config, tokens *Service) *Handler {
	return &Handler{cfg: cfg, tokens: tokens}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Login handles admin login
// @Summary Login
// @Description Authenticate with the admin credentials to receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Username != h.cfg.AdminUsername || !CheckPassword(req.Password, h.cfg.AdminPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		zap.S().Errorf("Failed to issue token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Username: req.Username})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}
