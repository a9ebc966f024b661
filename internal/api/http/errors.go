package http

import (
	"errors"
	"net/http"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
)

// statusFor maps an error category to an HTTP status code.
func statusFor(category apperrors.ErrorCategory) int {
	switch category {
	case apperrors.ErrCategoryValidation:
		return http.StatusBadRequest
	case apperrors.ErrCategoryNotFound:
		return http.StatusNotFound
	case apperrors.ErrCategoryUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCategoryConflict, apperrors.ErrCategoryInventory:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err with the status its category maps to. Storage
// and internal failures hide their message behind a generic one.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{RequestID: GetRequestID(r.Context())}
	category := apperrors.GetCategory(err)
	status := statusFor(category)

	var appErr *apperrors.Error
	errors.As(err, &appErr)

	switch {
	case status == http.StatusInternalServerError:
		resp.Error = "internal server error"
		if appErr != nil {
			resp.Category, resp.Code = string(appErr.Category), appErr.Code
		}
	case appErr != nil:
		resp.Error = appErr.Message
		resp.Category, resp.Code = string(appErr.Category), appErr.Code
		resp.Details = appErr.Details
	default:
		resp.Error = err.Error()
	}
	writeError(w, status, resp)
}
