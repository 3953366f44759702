package handler

import (
	"net/http"

	"rolegate/internal/rbac/resources"
	"rolegate/internal/rbac/service"

	"github.com/labstack/echo/v4"
)

type setValueReq struct {
	Value *float64 `json:"value"`
}

// SetDataPointValue handles PUT /data_points/:xid/value. It needs the set
// permission only.
func SetDataPointValue(s *service.ResourceService[resources.DataPoint]) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req setValueReq
		if err := c.Bind(&req); err != nil || req.Value == nil {
			return respondBadRequest(c, "value is required")
		}
		res, err := s.Set(c.Request().Context(), holderFrom(c), c.Param("xid"), resources.SetValue(*req.Value))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}
