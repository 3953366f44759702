package handler

import (
	"context"

	"rolegate/internal/rbac/model"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID = "x-user-id"
	holderKey    = "holder"
)

// HolderResolver turns the caller id of a request into a PermissionHolder.
type HolderResolver interface {
	Resolve(ctx context.Context, userID string) (model.PermissionHolder, error)
}

func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Request().Header.Get(echo.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, reqID)
		return next(c)
	}
}

// IdentityMiddleware resolves the holder once per request. Requests without
// x-user-id run as anonymous.
func IdentityMiddleware(resolver HolderResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			holder, err := resolver.Resolve(c.Request().Context(), c.Request().Header.Get(HeaderUserID))
			if err != nil {
				code, body := httpError(err)
				return c.JSON(code, body)
			}
			c.Set(holderKey, holder)
			return next(c)
		}
	}
}

func holderFrom(c echo.Context) model.PermissionHolder {
	if h, ok := c.Get(holderKey).(model.PermissionHolder); ok {
		return h
	}
	return model.AnonymousHolder()
}
