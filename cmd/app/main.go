package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bohemiyan/erp-rbac/discovery"
	"github.com/bohemiyan/erp-rbac/internal/config"
	"github.com/bohemiyan/erp-rbac/internal/db"
	"github.com/bohemiyan/erp-rbac/internal/routes"
	"github.com/bohemiyan/erp-rbac/modules"
	"github.com/bohemiyan/erp-rbac/routing"
	"github.com/bohemiyan/erp-rbac/zapLogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	rbac "github.com/bohemiyan/erp-rbac"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logFile := zapLogger.Init(cfg.LogFile, cfg.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}
	defer logger.Sync()

	env := config.DetectEnvironment(cfg)
	logger.Info("starting", zap.String("env", env.Name), zap.String("host", env.Hostname), zap.String("base_url", env.BaseURL))

	ctx := context.Background()

	pgDB, err := db.NewPostgresDB(cfg, logger)
	if err != nil {
		zapLogger.Log.Fatalf("Failed to initialize PostgreSQL: %v", err)
	}
	defer pgDB.Close()

	redisDB, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		zapLogger.Log.Fatalf("Failed to initialize Redis: %v", err)
	}
	if redisDB != nil {
		logger.Info("module cache enabled", zap.Duration("ttl", cfg.ModuleCacheTTL))
		defer redisDB.Close()
	}

	engine, err := rbac.NewRBAC(rbac.Config{
		DB:                 pgDB.GormDB,
		Logger:             logger,
		AutoMigrate:        true,
		EnableAuditLogging: cfg.AuditLogEnabled,
	})
	if err != nil {
		zapLogger.Log.Fatalf("Failed to initialize RBAC: %v", err)
	}

	rules := routing.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = routing.LoadRulesFile(cfg.RulesFile); err != nil {
			zapLogger.Log.Fatalf("Failed to load route rules: %v", err)
		}
	}
	mapper, err := routing.Compile(rules)
	if err != nil {
		zapLogger.Log.Fatalf("Invalid route rules: %v", err)
	}
	gates, err := routing.CompileGates(routing.DefaultGates())
	if err != nil {
		zapLogger.Log.Fatalf("Invalid module gates: %v", err)
	}

	graph := modules.DefaultGraph()
	state := modules.NewCachedState(
		modules.NewTableState(graph, modules.NewPostgresInspector(pgDB.DB, cfg.PostgresSchema)),
		redisDB, cfg.ModuleCacheTTL, cfg.CachePrefix, logger)
	checker := modules.NewChecker(graph, state, logger)
	if res := checker.CheckMandatory(ctx); !res.Met {
		logger.Warn("mandatory modules are not installed", zap.Strings("missing", res.MissingKeys()))
	}

	registry := discovery.NewRegistry(os.DirFS(cfg.PagesDir), mapper, engine, discovery.Options{})
	if res, err := registry.Sync(ctx, 0); err != nil {
		logger.Warn("permission sync at startup failed", zap.String("pages_dir", cfg.PagesDir), zap.Error(err))
	} else {
		logger.Info("permissions synced", zap.Any("result", res))
	}

	// Set up Fiber app
	app := fiber.New()
	app.Use(zapLogger.FiberLoggingMiddleware(logFile))

	routes.Setup(app, routes.Deps{
		RBAC:     engine,
		Mapper:   mapper,
		Gates:    gates,
		Modules:  checker,
		Registry: registry,
		Env:      env,
		Log:      logger,
	})

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	zapLogger.Log.Infof("Server started on port %d", cfg.AppPort)
	log.Fatal(app.Listen(addr))
}
