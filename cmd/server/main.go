package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/api"
	"github.com/qs3c/pec_go_server/internal/api/handler"
	"github.com/qs3c/pec_go_server/internal/app"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/pagecache"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/pec_go_server/internal/pkg/ws"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Base().WithError(err).Fatal("failed to load config")
	}

	logger.Setup(&cfg.Log)
	if logger.SetupSentry(&cfg.Sentry) {
		defer sentry.Flush(2 * time.Second)
	}
	log := logger.Base()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}
	defer a.Close()

	cache, err := pagecache.New(cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		log.WithError(err).Fatal("failed to create page cache")
	}

	// 审核事件经 Redis 转发给本实例上的管理员连接
	wsHub := ws.NewHub()
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)
	go func() {
		if err := pubsub.NewSubscriber(a.Redis).Subscribe(ctx, websocketHandler.Relay); err != nil && ctx.Err() == nil {
			logger.Report(ctx, err, "moderation subscriber stopped")
		}
	}()

	router := api.NewRouter(
		handler.NewAuthHandler(a.Auth),
		handler.NewUserHandler(a.Users, cfg.Upload.MaxSize),
		handler.NewCommentHandler(a.Comments),
		handler.NewRecipeHandler(a.Recipes),
		handler.NewStoryHandler(a.Stories),
		handler.NewSearchHandler(a.Index),
		handler.NewBasicHandler(a.Basic),
		handler.NewUploadHandler(a.Uploads, &cfg.Upload),
		websocketHandler,
		ratelimit.New(a.Redis, cfg.Throttle.Window),
		cache,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}
