package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/docuflow/extraction-tracker/api/v1alpha1"
	"github.com/docuflow/extraction-tracker/internal/service"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

const (
	codeAuthExpired        = "AUTH_EXPIRED"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
	retryAfterSeconds      = "30"
)

func renderError(w http.ResponseWriter, r *http.Request, status int, message string, code ...string) {
	body := v1alpha1.Error{Message: message}
	if len(code) > 0 {
		body.Code = &code[0]
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

// handleError maps a service error onto its http response.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound  *service.ErrResourceNotFound
		forbidden *service.ErrForbidden
		invalid   *service.ErrInvalidInput
		duplicate *service.ErrDuplicateJob
	)

	switch {
	case errors.As(err, &notFound):
		renderError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &forbidden):
		renderError(w, r, http.StatusForbidden, err.Error())
	case errors.As(err, &invalid):
		renderError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &duplicate):
		renderError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAuthExpired):
		renderError(w, r, http.StatusBadGateway, "the extraction service rejected the credential", codeAuthExpired)
	case errors.Is(err, service.ErrCredentialUnavailable),
		errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, service.ErrServiceUnavailable):
		w.Header().Set("Retry-After", retryAfterSeconds)
		renderError(w, r, http.StatusServiceUnavailable, err.Error(), codeServiceUnavailable)
	default:
		zap.S().Named("handler").Errorw("request failed", "path", r.URL.Path, "error", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
	}
}
