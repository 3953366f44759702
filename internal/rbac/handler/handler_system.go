package handler

import (
	"net/http"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/service"

	"github.com/labstack/echo/v4"
)

type SystemPermissionHandler struct {
	Service *service.SystemPermissionService
}

func NewSystemPermissionHandler(s *service.SystemPermissionService) *SystemPermissionHandler {
	return &SystemPermissionHandler{Service: s}
}

// ListSystemPermissions handles GET /system_permissions
func (h *SystemPermissionHandler) ListSystemPermissions(c echo.Context) error {
	list, err := h.Service.List(c.Request().Context(), holderFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetSystemPermission handles GET /system_permissions/:name
func (h *SystemPermissionHandler) GetSystemPermission(c echo.Context) error {
	sp, err := h.Service.Get(c.Request().Context(), holderFrom(c), c.Param("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

// PutSystemPermission handles PUT /system_permissions/:name
func (h *SystemPermissionHandler) PutSystemPermission(c echo.Context) error {
	var req model.UpdateSystemPermissionReq
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, "Invalid body")
	}
	if err := req.Validate(); err != nil {
		return respondError(c, err)
	}

	sp, err := h.Service.Update(c.Request().Context(), holderFrom(c), c.Param("name"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}
