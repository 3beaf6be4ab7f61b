package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"finapi/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, name, lastname, username, email, password string) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (*models.User, string, int, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, int, string, error)
	VerifyAccessToken(token string) (uuid.UUID, error)
}

type AuthHandler struct {
	logger *slog.Logger
	auth   AuthService
}

func NewAuthHandler(logger *slog.Logger, auth AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Lastname string `json:"lastname" binding:"required,max=100"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email,max=50"`
	Password string `json:"password" binding:"required,max=255"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required,min=3,max=64"`
	Password   string `json:"password" binding:"required,max=255"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,min=20"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Lastname  string    `json:"lastname"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         userResponse `json:"user"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Lastname:  u.Lastname,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c)
		return
	}

	user, err := h.auth.Register(c.Request.Context(),
		req.Name, req.Lastname, req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c)
		return
	}

	user, accessToken, expiresIn, refreshToken, err := h.auth.Login(
		c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		User:         toUserResponse(user),
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c)
		return
	}

	accessToken, expiresIn, refreshToken, err := h.auth.Refresh(
		c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
