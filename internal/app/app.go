package app

import (
	"context"
	"log/slog"
	"time"

	"finapi/internal/app/httpapp"
	"finapi/internal/config"
	httpapi "finapi/internal/http"
	"finapi/internal/lib/jwt"
	"finapi/internal/services/auth"
	"finapi/internal/services/user"
	"finapi/internal/storage/mongodb"
	"finapi/internal/storage/sqlite"
)

// Storage is the full data-access surface the services consume. Both the
// sqlite and the mongodb backends satisfy it.
type Storage interface {
	auth.UserStorage
	auth.TokenStorage
	user.Storage
}

type App struct {
	HTTPSrv *httpapp.App
}

func New(logger *slog.Logger, cfg *config.Config) *App {
	storage := newStorage(cfg)

	codec, err := jwt.NewCodec(cfg.JWT)
	if err != nil {
		panic(err)
	}

	refreshTokens := auth.NewRefreshTokens(storage, cfg.JWT.Secret, cfg.JWT.RefreshTTL)
	authService := auth.New(logger, storage, refreshTokens, codec, cfg.JWT.RefreshRotate)
	userService := user.New(logger, storage)

	router := httpapi.NewRouter(logger, authService, userService)
	httpApp := httpapp.New(logger, router, cfg.HTTP)

	return &App{
		HTTPSrv: httpApp,
	}
}

func newStorage(cfg *config.Config) Storage {
	switch cfg.Storage.Type {
	case "mongodb":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		storage, err := mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			panic(err)
		}
		return storage
	case "sqlite":
		storage, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			panic(err)
		}
		return storage
	default:
		panic("unknown storage type: " + cfg.Storage.Type)
	}
}
