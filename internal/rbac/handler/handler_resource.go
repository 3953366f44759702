package handler

import (
	"net/http"
	"strconv"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/service"

	"github.com/labstack/echo/v4"
)

// ResourceHandler serves the CRUD routes of one resource type. Routes take
// the xid; the /id/:id variants take the internal id.
type ResourceHandler[P any] struct {
	Service *service.ResourceService[P]
}

func NewResourceHandler[P any](s *service.ResourceService[P]) *ResourceHandler[P] {
	return &ResourceHandler[P]{Service: s}
}

func (h *ResourceHandler[P]) List(c echo.Context) error {
	list, err := h.Service.List(c.Request().Context(), holderFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ResourceHandler[P]) Get(c echo.Context) error {
	res, err := h.Service.GetByXid(c.Request().Context(), holderFrom(c), c.Param("xid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ResourceHandler[P]) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respondBadRequest(c, "Invalid id")
	}
	res, err := h.Service.Get(c.Request().Context(), holderFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ResourceHandler[P]) Mappings(c echo.Context) error {
	rows, err := h.Service.MappingReport(c.Request().Context(), holderFrom(c), c.Param("xid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ResourceHandler[P]) Post(c echo.Context) error {
	res, err := h.bind(c)
	if err != nil {
		return respondError(c, err)
	}
	created, err := h.Service.Insert(c.Request().Context(), holderFrom(c), res)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *ResourceHandler[P]) Put(c echo.Context) error {
	res, err := h.bind(c)
	if err != nil {
		return respondError(c, err)
	}
	updated, err := h.Service.UpdateByXid(c.Request().Context(), holderFrom(c), c.Param("xid"), res)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *ResourceHandler[P]) PutByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respondBadRequest(c, "Invalid id")
	}
	res, err := h.bind(c)
	if err != nil {
		return respondError(c, err)
	}
	updated, err := h.Service.Update(c.Request().Context(), holderFrom(c), id, res)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *ResourceHandler[P]) Delete(c echo.Context) error {
	if err := h.Service.DeleteByXid(c.Request().Context(), holderFrom(c), c.Param("xid")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ResourceHandler[P]) DeleteByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respondBadRequest(c, "Invalid id")
	}
	if err := h.Service.Delete(c.Request().Context(), holderFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ResourceHandler[P]) bind(c echo.Context) (*model.Resource[P], error) {
	var req model.ResourceReq
	if err := c.Bind(&req); err != nil {
		return nil, &model.ErrorDetail{Code: "bad_request", Message: "Invalid body"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return model.ToResource[P](&req)
}
