package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/app"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/worker"
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

	// 监听退出信号
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}
	defer a.Close()

	sweeper := a.AvatarSweeper()
	sweeper.Start()
	defer sweeper.Stop()

	reindexer := worker.NewReindexer(a.Index, cfg.Index.RebuildInterval)

	var wg sync.WaitGroup
	// index.async 关闭时索引在请求内同步刷新，没有队列可消费
	if cfg.Index.Async {
		processor := worker.NewProcessor(a.Queue, a.Index, cfg.Index.Workers, cfg.Index.MaxRetries)
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Run(ctx)
		}()
		log.WithField("workers", cfg.Index.Workers).WithField("queue", cfg.Index.Queue).Info("index consumer started")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reindexer.Start(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	log.Info("worker shutdown complete")
}
