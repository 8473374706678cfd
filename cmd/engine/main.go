package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"tradescript/internal/auth"
	"tradescript/internal/config"
	cronrunner "tradescript/internal/cron"
	"tradescript/internal/db"
	"tradescript/internal/engine"
	"tradescript/internal/exchange"
	"tradescript/internal/handler"
	"tradescript/internal/logger"
	"tradescript/internal/market"
	gormrepository "tradescript/internal/repository/gorm"
	"tradescript/internal/service"
	"tradescript/internal/strategy"

	_ "tradescript/docs"
)

func main() {
	cfgPath := os.Getenv("TS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := dbConn.SetTimezone(cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := dbConn.AutoMigrate(); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}
	modulesSvc := &service.ModuleSettingsService{Repo: store}

	marketClient := market.NewClient(cfg.Market.Hosts, cfg.Market.Timeout, logger)
	exchangeClient := exchange.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.Timeout, cfg.Exchange.DryRun, logger)

	coordinator := &engine.Coordinator{
		Repo:           store,
		Market:         marketClient,
		Exchange:       exchangeClient,
		Flags:          settingsSvc,
		Modules:        modulesSvc,
		Evaluator:      &strategy.Evaluator{},
		Logger:         logger,
		LookbackMargin: cfg.Market.LookbackMargin,
		MaxCandles:     cfg.Market.MaxCandles,
	}
	sweeper := &engine.Sweeper{
		Repo:        store,
		Coordinator: coordinator,
		Logger:      logger,
		Concurrency: cfg.Sweep.Concurrency,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(auth.RequireBearerMiddleware(store, logger))

	healthHandler := &handler.HealthHandler{DB: dbConn, Env: cfg.App.Env}
	healthHandler.Register(router)
	engineHandler := &handler.EngineHandler{Repo: store, Coordinator: coordinator, Sweeper: sweeper, Market: marketClient}
	engineHandler.Register(router)
	scriptsHandler := &handler.ScriptsHandler{Repo: store}
	scriptsHandler.Register(router)
	tradesHandler := &handler.TradesHandler{Repo: store}
	tradesHandler.Register(router)
	coinsHandler := &handler.CoinsHandler{Repo: store}
	coinsHandler.Register(router)
	usersHandler := &handler.UsersHandler{Repo: store, StartingCoins: cfg.Coins.StartingBalance}
	usersHandler.Register(router)
	settingsHandler := &handler.SettingsHandler{Repo: store, Settings: settingsSvc, Modules: modulesSvc}
	settingsHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)

	if cfg.Sweep.Enabled {
		spec := "@every " + cfg.Sweep.Interval.String()
		_, err := cronRunner.Add(spec, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureSweep, true) {
				return
			}
			if _, err := sweeper.RunSweep(ctx, false); err != nil {
				logger.Warn("cron sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register sweep failed", zap.Error(err))
		}
	}

	// Periodic cleanup: claimed signal rows only matter until the retention
	// window has passed; removing old ones keeps the unique index small.
	_, err = cronRunner.Add("@every 1h", func(ctx context.Context) {
		cutoff := time.Now().UTC().Add(-cfg.Sweep.SignalRetention)
		n, err := store.DeleteSignalsBefore(ctx, cutoff)
		if err != nil {
			logger.Warn("signal cleanup failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("deleted old signal claims", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register signal cleanup failed", zap.Error(err))
	}

	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
