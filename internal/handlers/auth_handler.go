package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/roimob-api/internal/middleware"
	"github.com/sjperalta/roimob-api/internal/services"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

type HealthHandler struct {
	startedAt time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// @Summary Health Check
// @Description Liveness check with the running version and uptime
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        "roimob-api",
		"version":        "1.0.0",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// LoginRequest accepts {"email", "password"} or the same fields under "session"
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary Login
// @Description Opens a broker session and returns an access token plus a refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} services.LoginResult
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := BindNestedOrFlat(c, "session", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "E-mail e senha são obrigatórios"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		logger.Info("login rejected", "email", email, "ip", c.ClientIP(), "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Register
// @Description Creates a broker account and opens a session for it
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "Account data"
// @Success 201 {object} services.LoginResult
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := BindNestedOrFlat(c, "user", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), requestMeta(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("broker registered", "user_id", user.ID, "ip", c.ClientIP())

	result, err := h.authService.Login(c.Request.Context(), user.Email, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":         result.Token,
		"refresh_token": result.RefreshToken,
		"expires_at":    result.ExpiresAt,
		"user":          result.User,
		"message":       "Usuário cadastrado com sucesso",
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshToken reads the token from the body or, for clients that keep it out of
// JSON payloads, from the X-Refresh-Token header
func refreshToken(c *gin.Context) (string, bool) {
	if token := strings.TrimSpace(c.GetHeader("X-Refresh-Token")); token != "" {
		return token, true
	}
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := BindNestedOrFlat(c, "session", &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON inválido: " + err.Error()})
			return "", false
		}
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token é obrigatório"})
		return "", false
	}
	return req.RefreshToken, true
}

// @Summary Refresh Token
// @Description Rotates the refresh token and issues a new access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest false "Refresh token (or X-Refresh-Token header)"
// @Success 200 {object} services.LoginResult
// @Failure 401 {object} map[string]string
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := refreshToken(c)
	if !ok {
		return
	}
	result, err := h.authService.RefreshToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Logout
// @Description Revokes the refresh token. Always answers 200 so clients can drop their session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest false "Refresh token (or X-Refresh-Token header)"
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := refreshToken(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		logger.Warn("logout failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sessão encerrada"})
}

// @Summary Current User
// @Description Profile of the authenticated broker and the locale used for labels
// @Tags Auth
// @Produce json
// @Success 200 {object} models.UserResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToResponse(), "locale": middleware.Locale(c)})
}
