package handler

import (
	"errors"
	"net/http"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/util"
)

// httpError maps a service error to its HTTP status and body. Storage
// details never reach the client.
func httpError(err error) (int, model.ErrorResponse) {
	var detail *model.ErrorDetail
	if errors.As(err, &detail) {
		return http.StatusBadRequest, model.ErrorResponse{Error: *detail}
	}
	if ve, ok := model.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity, model.ErrorResponse{
			Error: model.ErrorDetail{
				Code:    "validation_failed",
				Message: "Validation failed",
				Fields:  ve.Result.Messages,
			},
		}
	}

	var code, msg string
	var status int

	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
		msg = "Not found"
	case errors.Is(err, model.ErrPermissionDenied):
		status = http.StatusForbidden
		code = "forbidden"
		msg = "Permission denied"
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
		code = "conflict"
		msg = "Resource was modified concurrently"
	case errors.Is(err, model.ErrCascadeFailed):
		status = http.StatusConflict
		code = "cascade_failed"
		msg = "Role is still referenced and could not be removed; retry the deletion"
	case errors.Is(err, model.ErrNotSettable):
		status = http.StatusBadRequest
		code = "bad_request"
		msg = "Resource type has no set operation"
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		code = "unauthorized"
		msg = "Unauthorized"
	default:
		util.GetLogger().Error("request failed", "error", err)
		status = http.StatusInternalServerError
		code = "internal_error"
		msg = "Internal error"
	}

	return status, model.ErrorResponse{
		Error: model.ErrorDetail{Code: code, Message: msg},
	}
}

func badRequest(msg string) (int, model.ErrorResponse) {
	return http.StatusBadRequest, model.ErrorResponse{
		Error: model.ErrorDetail{Code: "bad_request", Message: msg},
	}
}
