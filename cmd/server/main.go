package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcommission "github.com/FirplakDesarrollador/CRM-sub001/internal/application/commission"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/auth"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/cache"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/config"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/logger"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/migration"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/persistence"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/infrastructure/telemetry"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/interfaces/http/handler"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/interfaces/http/middleware"
	"github.com/FirplakDesarrollador/CRM-sub001/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const healthPath = "/health"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	logCfg.Service = cfg.App.Name
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting commission engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := migrate(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	ctx := context.Background()
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry, version), log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		mc := meterProvider.GetConfig()
		log.Info("Metrics export enabled",
			zap.String("collector", mc.CollectorEndpoint),
			zap.Duration("interval", mc.ExportInterval),
		)
	}
	meter := meterProvider.Meter("commission-engine")

	commissionMetrics, err := telemetry.NewCommissionMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register commission metrics", zap.Error(err))
	}

	locker, closeLocker, err := cache.NewLockerFactory(cfg.Commission, cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create opportunity locker", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing locker", zap.Error(err))
		}
	}()

	scope := persistence.NewGormTransactionScope(db.DB)
	commissionService := appcommission.NewService(scope, scope.Repositories(),
		appcommission.WithLocker(locker, cfg.Commission.LockTTL, cfg.Commission.LockWait),
		appcommission.WithMetrics(commissionMetrics),
		appcommission.WithLogger(log),
	)

	var verifier *auth.Verifier
	if cfg.JWT.Secret != "" {
		verifier = auth.NewVerifier(cfg.JWT)
	} else {
		log.Warn("No JWT secret configured, the X-Actor-ID header identifies the actor")
	}

	middleware.SetupValidator()
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		Meter:          meter,
		Verifier:       verifier,
		AuthRequired:   cfg.JWT.Required,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		HealthPath:     healthPath,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	engine.GET(healthPath, handler.NewHealthHandler(db).Health)
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewCommissionHandler(commissionService)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.ForceFlush(shutdownCtx); err != nil {
		log.Warn("Error flushing metrics", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool, so only Up runs here.
	start := time.Now()
	if err := m.Up(); err != nil {
		return err
	}
	log.Info("Schema up to date", zap.Duration("took", time.Since(start)))
	return nil
}
