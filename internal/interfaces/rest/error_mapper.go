package rest

import (
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/api"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// BuildErrorResponse maps an error to its HTTP status and public body.
// Internal details never reach the body.
func BuildErrorResponse(err error) (int, api.ErrorResponse) {
	return application.ToHTTPStatus(err), api.ErrorResponse{
		Success: false,
		Error: api.ErrorDetail{
			Code:    application.ToErrorCode(err),
			Message: application.PublicMessage(err),
		},
	}
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, body := BuildErrorResponse(err)

	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}

	render.Status(r, status)
	render.JSON(w, r, body)
}
