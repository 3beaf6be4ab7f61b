package http

import (
	"errors"
	"log/slog"
	"net/http"

	"finapi/internal/domain/errs"
	"finapi/internal/lib/sl"

	"github.com/gin-gonic/gin"
)

// kindStatus is the single mapping from domain error kinds to HTTP statuses.
var kindStatus = map[errs.Kind]int{
	errs.KindBadRequest:   http.StatusBadRequest,
	errs.KindValidation:   http.StatusUnprocessableEntity,
	errs.KindUnauthorized: http.StatusUnauthorized,
	errs.KindForbidden:    http.StatusForbidden,
	errs.KindNotFound:     http.StatusNotFound,
	errs.KindConflict:     http.StatusConflict,
	errs.KindInternal:     http.StatusInternalServerError,
}

type errorBody struct {
	Code   string         `json:"code"`
	Detail string         `json:"detail"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// respondError translates a service error into the wire error payload.
// Anything that is not a domain error is an infrastructure failure and maps
// to an opaque 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var domainErr *errs.Error
	if errors.As(err, &domainErr) {
		status, ok := kindStatus[domainErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, errorBody{
			Code:   domainErr.Code,
			Detail: domainErr.Detail,
			Meta:   domainErr.Meta,
		})
		return
	}

	logger.Error("unhandled error", sl.Err(err),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, errorBody{
		Code:   "internal_server_error",
		Detail: "An internal server error occurred.",
	})
}

// respondValidation is used for request binding failures.
func respondValidation(c *gin.Context) {
	c.JSON(http.StatusUnprocessableEntity, errorBody{
		Code:   "validation_error",
		Detail: "Request validation failed.",
	})
}
