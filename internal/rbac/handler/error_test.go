package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"rolegate/internal/rbac/model"

	"github.com/stretchr/testify/assert"
)

func TestHTTPError(t *testing.T) {
	validation := model.NewProcessResult()
	validation.AddContextualMessage("readPermission", model.CodeMustRetainPermission, "")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", model.ErrNotFound, http.StatusNotFound, "not_found"},
		{"denied", model.ErrPermissionDenied, http.StatusForbidden, "forbidden"},
		{"conflict", model.ErrConflict, http.StatusConflict, "conflict"},
		{"cascade", fmt.Errorf("%w: role x: boom", model.ErrCascadeFailed), http.StatusConflict, "cascade_failed"},
		{"unauthorized", model.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"not settable", model.ErrNotSettable, http.StatusBadRequest, "bad_request"},
		{"bad request", &model.ErrorDetail{Code: "bad_request", Message: "Invalid body"}, http.StatusBadRequest, "bad_request"},
		{"validation", validation.Err(), http.StatusUnprocessableEntity, "validation_failed"},
		{"internal", errors.New("connection reset by peer"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := httpError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}

	t.Run("internal errors hide details", func(t *testing.T) {
		_, body := httpError(errors.New("mongo: server selection timeout"))
		assert.NotContains(t, body.Error.Message, "mongo")
	})

	t.Run("validation carries field keys", func(t *testing.T) {
		_, body := httpError(validation.Err())
		assert.Equal(t, []model.ProcessMessage{{Key: "readPermission", Code: model.CodeMustRetainPermission}}, body.Error.Fields)
	})
}
