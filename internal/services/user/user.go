// Package user implements user management: listing, lookup and deletion.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finapi/internal/domain/errs"
	"finapi/internal/domain/models"
	"finapi/internal/lib/sl"
	"finapi/internal/storage"

	"github.com/google/uuid"
)

type Storage interface {
	Users(ctx context.Context, limit, offset int) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
	UserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type Service struct {
	logger  *slog.Logger
	storage Storage
}

func New(logger *slog.Logger, userStorage Storage) *Service {
	return &Service{
		logger:  logger,
		storage: userStorage,
	}
}

// List returns a page of users ordered by creation time, the total count
// and the number of pages for the given limit.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.User, int, int, error) {
	const op = "user.List"
	log := s.logger.With(slog.String("op", op))

	total, err := s.storage.CountUsers(ctx)
	if err != nil {
		log.Error("failed to count users", sl.Err(err))
		return nil, 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	users, err := s.storage.Users(ctx, limit, offset)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		return nil, 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	return users, total, totalPages, nil
}

// ByID returns a single user.
func (s *Service) ByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "user.ByID"

	u, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrUserNotFound)
		}
		s.logger.With(slog.String("op", op)).Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Delete removes a user and, via the schema's cascade, their token records.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID) error {
	const op = "user.Delete"
	log := s.logger.With(slog.String("op", op), slog.String("userID", userID.String()))

	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, errs.ErrUserNotFound)
		}
		log.Error("failed to delete user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user deleted")
	return nil
}
