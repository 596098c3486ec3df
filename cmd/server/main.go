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
	"go.uber.org/zap"

	"tractorbid/internal/approval"
	"tractorbid/internal/bidding"
	"tractorbid/internal/config"
	cronrunner "tractorbid/internal/cron"
	"tractorbid/internal/db"
	"tractorbid/internal/handler"
	"tractorbid/internal/lifecycle"
	"tractorbid/internal/logger"
	"tractorbid/internal/notify"
	"tractorbid/internal/realtime"
	gormrepository "tractorbid/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("TB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TB_ENV_ONLY"); envOnlyRaw != "" {
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
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	hub := realtime.NewHub(logger, cfg.Realtime.SubscriberBuffer)

	notifier := &notify.Service{
		Repo:        store,
		Sender:      initNotifySender(cfg.Notify, logger),
		Logger:      logger,
		SendTimeout: cfg.Notify.Timeout,
	}
	bidSvc := &bidding.Service{
		Repo:      store,
		Logger:    logger,
		Defaults:  cfg.Bidding,
		Broadcast: hub,
		Notifier:  notifier,
	}
	approvalSvc := &approval.Service{
		Repo:         store,
		Logger:       logger,
		Notifier:     notifier,
		DeadlineDays: cfg.Approval.DeadlineDays,
	}
	lifecycleSvc := &lifecycle.Service{
		Repo:      store,
		Logger:    logger,
		Broadcast: hub,
		Notifier:  notifier,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.Identity(store))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	auctionHandler := &handler.AuctionHandler{Repo: store, Approval: approvalSvc}
	auctionHandler.Register(engine)
	bidHandler := &handler.BidHandler{Bids: bidSvc}
	bidHandler.Register(engine)
	notifHandler := &handler.NotificationHandler{Repo: store}
	notifHandler.Register(engine)
	wsHandler := &handler.WSHandler{Hub: hub, Logger: logger}
	wsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add(cfg.Cron.Lifecycle, func(ctx context.Context) {
			lifecycleSvc.Tick(ctx)
		})
		if err != nil {
			logger.Warn("cron register lifecycle failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

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
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func initNotifySender(cfg config.NotifyConfig, logger *zap.Logger) notify.Sender {
	base := strings.TrimSpace(cfg.BaseURL)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if base == "" || apiKey == "" {
		return nil
	}

	client := &notify.Client{BaseURL: base, APIKey: apiKey}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Login(ctx); err != nil {
		logger.Warn("notify gateway login failed (push delivery disabled)", zap.Error(err))
		return nil
	}
	logger.Info("notify gateway login ok")
	return client
}
