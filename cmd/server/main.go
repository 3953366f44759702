package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rolegate/internal/rbac/config"
	"rolegate/internal/rbac/lock"
	"rolegate/internal/rbac/metrics"
	"rolegate/internal/rbac/permission"
	"rolegate/internal/rbac/repository"
	"rolegate/internal/rbac/resources"
	"rolegate/internal/rbac/router"
	"rolegate/internal/rbac/service"
	"rolegate/internal/rbac/util"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stores are the repositories selected by STORE_DRIVER.
type stores struct {
	store      repository.Store
	history    repository.HistoryRepository
	dashboards repository.ResourceRepository[resources.Dashboard]
	dataPoints repository.ResourceRepository[resources.DataPoint]
	close      func(context.Context) error
}

func main() {
	// 0. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		util.GetLogger().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 1. Init Logger
	util.InitLogger(cfg.LogFormat, cfg.LogLevel)
	logger := util.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. Init storage and lock
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	guard, closeGuard, err := openGuard(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// Ensure Indexes
	if err := st.store.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure indexes", "error", err)
	}
	if err := st.history.EnsureHistoryIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure history indexes", "error", err)
	}
	for _, repo := range []interface{ EnsureIndexes(context.Context) error }{st.dashboards, st.dataPoints} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure resource indexes", "error", err)
		}
	}

	// 3. Init Layers
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	permissions, err := permission.NewDefaultRegistry()
	if err != nil {
		logger.Error("Failed to load system permission defaults", "error", err)
		os.Exit(1)
	}
	evaluator := permission.NewEvaluator(permissions)

	roles := service.NewRoleService(st.store, st.history, guard, m, service.RoleServiceOptions{
		CacheSize:      cfg.RoleCacheSize,
		CacheTTL:       cfg.RoleCacheTTL,
		CascadeRetries: cfg.CascadeRetries,
	})
	if err := roles.EnsureSystemRoles(ctx); err != nil {
		logger.Error("Failed to seed system roles", "error", err)
		os.Exit(1)
	}

	deps := service.Deps{
		Evaluator: evaluator,
		Validator: permission.NewValidator(evaluator),
		Roles:     roles,
		Mappings:  st.store,
		Sequences: st.store,
		History:   st.history,
		Guard:     guard,
		Metrics:   m,
		Logger:    logger,
	}
	sysperms := service.NewSystemPermissionService(st.store, deps)
	deps.Permissions = sysperms
	dashboards := service.NewResourceService(resources.DashboardDefinition(), st.dashboards, deps)
	dataPoints := service.NewResourceService(resources.DataPointDefinition(), st.dataPoints, deps)
	assignments := service.NewAssignmentService(st.store, deps)

	// overrides load after every resource type registered its default
	if err := sysperms.Load(ctx); err != nil {
		logger.Error("Failed to load system permissions", "error", err)
		os.Exit(1)
	}
	if err := assignments.Bootstrap(ctx, cfg.BootstrapSuperadmins); err != nil {
		logger.Error("Failed to bootstrap superadmins", "error", err)
		os.Exit(1)
	}

	roles.RegisterCascader(dashboards)
	roles.RegisterCascader(dataPoints)
	roles.RegisterCascader(sysperms)
	roles.RegisterCascader(assignments)

	// 4. Init Echo & Routes
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	router.RegisterRoutes(e, router.Services{
		Roles:             roles,
		SystemPermissions: sysperms,
		Assignments:       assignments,
		History:           service.NewHistoryService(st.history),
		Dashboards:        dashboards,
		DataPoints:        dataPoints,
		Metrics:           m,
	})

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "store", cfg.StoreDriver, "redis_lock", cfg.RedisAddr != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("shutting down the server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server Shutdown Failed", "error", err)
	}
	if err := closeGuard(); err != nil {
		logger.Error("Failed to close Redis", "error", err)
	}
	if err := st.close(shutdownCtx); err != nil {
		logger.Error("Failed to disconnect DB", "error", err)
	}

	logger.Info("Server exited properly")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return &stores{
			store:      repository.NewMemoryStore(),
			history:    repository.NewMemoryHistoryRepository(),
			dashboards: repository.NewMemoryResourceRepository[resources.Dashboard](),
			dataPoints: repository.NewMemoryResourceRepository[resources.DataPoint](),
			close:      func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(cfg.DBName)
	return &stores{
		store: repository.NewMongoRepository(db, repository.Collections{
			Roles:             cfg.RolesCollection,
			Mappings:          cfg.MappingsCollection,
			SystemPermissions: cfg.SystemPermissionsCollection,
			Assignments:       cfg.AssignmentsCollection,
			Counters:          cfg.CountersCollection,
		}),
		history:    repository.NewMongoHistoryRepository(db, cfg.HistoryCollection),
		dashboards: repository.NewMongoResourceRepository[resources.Dashboard](db, cfg.DashboardsCollection),
		dataPoints: repository.NewMongoResourceRepository[resources.DataPoint](db, cfg.DataPointsCollection),
		close:      client.Disconnect,
	}, nil
}

// openGuard uses Redis when REDIS_ADDR is set so that cascades exclude
// writers in every replica.
func openGuard(ctx context.Context, cfg *config.Config) (lock.Guard, func() error, error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocalGuard(), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return lock.NewRedisGuard(client, cfg.LockPrefix, cfg.LockTTL, cfg.LockPollInterval), client.Close, nil
}
