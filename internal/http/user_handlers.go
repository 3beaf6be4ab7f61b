package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"finapi/internal/domain/errs"
	"finapi/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

type UserService interface {
	List(ctx context.Context, limit, offset int) ([]models.User, int, int, error)
	ByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type UserHandler struct {
	logger *slog.Logger
	users  UserService
}

func NewUserHandler(logger *slog.Logger, users UserService) *UserHandler {
	return &UserHandler{logger: logger, users: users}
}

type pageMeta struct {
	Total      int `json:"total"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalPages int `json:"total_pages"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
	Meta  pageMeta       `json:"meta"`
}

// List handles GET /users.
func (h *UserHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageLimit)
	offset := queryInt(c, "offset", 0)
	if limit < 1 || limit > maxPageLimit || offset < 0 {
		respondValidation(c)
		return
	}

	users, total, totalPages, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}

	c.JSON(http.StatusOK, usersResponse{
		Users: out,
		Meta: pageMeta{
			Total:      total,
			Limit:      limit,
			Offset:     offset,
			TotalPages: totalPages,
		},
	})
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, errs.ErrUserNotFound)
		return
	}

	u, err := h.users.ByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(u))
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, errs.ErrUserNotFound)
		return
	}

	if err := h.users.Delete(c.Request.Context(), userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
