package worker

import (
	"context"
	"time"

	"github.com/qs3c/pec_go_server/internal/pkg/logger"
)

// Rebuilder 全量重算评论数和搜索索引
type Rebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

// Reindexer 定时全量重建，修复队列丢失或消费失败留下的偏差
type Reindexer struct {
	rebuilder Rebuilder
	interval  time.Duration
}

func NewReindexer(rebuilder Rebuilder, interval time.Duration) *Reindexer {
	return &Reindexer{
		rebuilder: rebuilder,
		interval:  interval,
	}
}

// Start 阻塞运行，ctx 取消后返回
func (r *Reindexer) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.For(ctx).Info("reindexer stopped")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

func (r *Reindexer) run(ctx context.Context) {
	started := time.Now()
	count, err := r.rebuilder.Rebuild(ctx)
	if err != nil {
		logger.Report(ctx, err, "index rebuild failed")
		return
	}
	logger.For(ctx).WithField("objects", count).WithField("elapsed", time.Since(started)).Info("index rebuilt")
}
