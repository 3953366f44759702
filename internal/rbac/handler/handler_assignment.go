package handler

import (
	"net/http"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/service"

	"github.com/labstack/echo/v4"
)

type AssignmentHandler struct {
	Service *service.AssignmentService
	History *service.HistoryService
}

func NewAssignmentHandler(s *service.AssignmentService, history *service.HistoryService) *AssignmentHandler {
	return &AssignmentHandler{Service: s, History: history}
}

type userRolesResp struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// GetUserRolesMe handles GET /users/me/roles
func (h *AssignmentHandler) GetUserRolesMe(c echo.Context) error {
	callerID := c.Request().Header.Get(HeaderUserID)
	if callerID == "" {
		return respondError(c, model.ErrUnauthorized)
	}
	return h.userRoles(c, callerID)
}

// GetUserRoles handles GET /users/:id/roles
func (h *AssignmentHandler) GetUserRoles(c echo.Context) error {
	return h.userRoles(c, c.Param("id"))
}

func (h *AssignmentHandler) userRoles(c echo.Context, userID string) error {
	roles, err := h.Service.GetRoles(c.Request().Context(), holderFrom(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, userRolesResp{UserID: userID, Roles: roles})
}

// PutUserRoles handles PUT /users/:id/roles
func (h *AssignmentHandler) PutUserRoles(c echo.Context) error {
	var req model.SetUserRolesReq
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, "Invalid body")
	}
	if err := req.Validate(); err != nil {
		return respondError(c, err)
	}

	a, err := h.Service.SetRoles(c.Request().Context(), holderFrom(c), c.Param("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// GetPermissionHistory handles GET /history
func (h *AssignmentHandler) GetPermissionHistory(c echo.Context) error {
	var req model.GetPermissionHistoryReq
	if err := c.Bind(&req); err != nil {
		return respondBadRequest(c, "Invalid parameters")
	}
	if err := req.Validate(); err != nil {
		return respondError(c, err)
	}

	result, err := h.History.Find(c.Request().Context(), holderFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
