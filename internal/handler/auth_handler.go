package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Validate(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// sessionToken reads the token from the JSON body, falling back to a bearer header.
func sessionToken(c *gin.Context) (string, error) {
	var req dto.SessionTokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", bindError(err, "invalid session payload")
		}
	}
	if req.SessionToken != "" {
		return req.SessionToken, nil
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:]), nil
	}
	return "", nil
}

// Register godoc
// @Summary Register account
// @Description Create a student account, or a staff/admin account when the registration keyword matches
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "User registered successfully", gin.H{"user": user})
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password and receive a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Login successful", gin.H{
		"user":         res.User,
		"sessionToken": res.SessionToken,
		"expiresAt":    res.ExpiresAt,
	})
}

// Validate godoc
// @Summary Validate session
// @Description Resolve a session token to its user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SessionTokenRequest true "Session token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.ErrorBody
// @Router /auth/validate [post]
func (h *AuthHandler) Validate(c *gin.Context) {
	token, err := sessionToken(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.service.Validate(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Session is valid", gin.H{"user": user})
}

// Logout godoc
// @Summary Logout
// @Description Revoke a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SessionTokenRequest true "Session token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} response.ErrorBody
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := sessionToken(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Logged out successfully", nil)
}
