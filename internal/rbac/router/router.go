package router

import (
	"rolegate/internal/rbac/handler"
	"rolegate/internal/rbac/metrics"
	"rolegate/internal/rbac/resources"
	"rolegate/internal/rbac/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Services are the wired services the API exposes.
type Services struct {
	Roles             *service.RoleService
	SystemPermissions *service.SystemPermissionService
	Assignments       *service.AssignmentService
	History           *service.HistoryService
	Dashboards        *service.ResourceService[resources.Dashboard]
	DataPoints        *service.ResourceService[resources.DataPoint]
	Metrics           *metrics.Metrics
}

func RegisterRoutes(e *echo.Echo, s Services) {
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, handler.HeaderUserID},
	}))

	e.GET("/health", handler.HealthCheck)
	if s.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}

	v1 := e.Group("/api/v1")
	v1.Use(handler.RequestIDMiddleware)
	v1.Use(handler.IdentityMiddleware(s.Assignments))

	roles := handler.NewRoleHandler(s.Roles)
	v1.GET("/roles", roles.ListRoles)
	v1.POST("/roles", roles.PostRole)
	v1.GET("/roles/:xid", roles.GetRole)
	v1.GET("/roles/id/:id", roles.GetRoleByID)
	v1.GET("/roles/:xid/mappings", roles.GetRoleMappings)
	v1.PUT("/roles/:xid", roles.PutRole)
	v1.DELETE("/roles/:xid", roles.DeleteRole)

	sys := handler.NewSystemPermissionHandler(s.SystemPermissions)
	v1.GET("/system_permissions", sys.ListSystemPermissions)
	v1.GET("/system_permissions/:name", sys.GetSystemPermission)
	v1.PUT("/system_permissions/:name", sys.PutSystemPermission)

	users := handler.NewAssignmentHandler(s.Assignments, s.History)
	v1.GET("/users/me/roles", users.GetUserRolesMe)
	v1.GET("/users/:id/roles", users.GetUserRoles)
	v1.PUT("/users/:id/roles", users.PutUserRoles)
	v1.GET("/history", users.GetPermissionHistory)

	registerResource(v1.Group("/dashboards"), handler.NewResourceHandler(s.Dashboards))

	dataPoints := v1.Group("/data_points")
	registerResource(dataPoints, handler.NewResourceHandler(s.DataPoints))
	dataPoints.PUT("/:xid/value", handler.SetDataPointValue(s.DataPoints))
}

func registerResource[P any](g *echo.Group, h *handler.ResourceHandler[P]) {
	g.GET("", h.List)
	g.POST("", h.Post)
	g.GET("/:xid", h.Get)
	g.GET("/:xid/mappings", h.Mappings)
	g.PUT("/:xid", h.Put)
	g.DELETE("/:xid", h.Delete)
	g.GET("/id/:id", h.GetByID)
	g.PUT("/id/:id", h.PutByID)
	g.DELETE("/id/:id", h.DeleteByID)
}
