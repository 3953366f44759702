package handler

import (
	"net/http"
	"strconv"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/service"

	"github.com/labstack/echo/v4"
)

type RoleHandler struct {
	Service *service.RoleService
}

func NewRoleHandler(s *service.RoleService) *RoleHandler {
	return &RoleHandler{Service: s}
}

// ListRoles handles GET /roles
func (h *RoleHandler) ListRoles(c echo.Context) error {
	roles, err := h.Service.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

// GetRole handles GET /roles/:xid
func (h *RoleHandler) GetRole(c echo.Context) error {
	role, err := h.Service.Get(c.Request().Context(), c.Param("xid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// GetRoleByID handles GET /roles/id/:id
func (h *RoleHandler) GetRoleByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respondBadRequest(c, "Invalid id")
	}
	role, err := h.Service.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// GetRoleMappings handles GET /roles/:xid/mappings
func (h *RoleHandler) GetRoleMappings(c echo.Context) error {
	rows, err := h.Service.MappingReport(c.Request().Context(), holderFrom(c), c.Param("xid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// PostRole handles POST /roles
func (h *RoleHandler) PostRole(c echo.Context) error {
	var req model.CreateRoleReq
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, "Invalid body")
	}
	if err := req.Validate(); err != nil {
		return respondError(c, err)
	}

	role, err := h.Service.Insert(c.Request().Context(), holderFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

// PutRole handles PUT /roles/:xid
func (h *RoleHandler) PutRole(c echo.Context) error {
	var req model.UpdateRoleReq
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, "Invalid body")
	}
	if err := req.Validate(); err != nil {
		return respondError(c, err)
	}

	role, err := h.Service.Update(c.Request().Context(), holderFrom(c), c.Param("xid"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// DeleteRole handles DELETE /roles/:xid
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	if err := h.Service.Delete(c.Request().Context(), holderFrom(c), c.Param("xid")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
