package worker

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/queue"
	"github.com/qs3c/pec_go_server/internal/service"
)

const popTimeout = 5 * time.Second

// Indexer 处理单条索引刷新任务
type Indexer interface {
	Process(ctx context.Context, msg *queue.IndexMessage) error
}

// Processor 从 Redis 队列消费索引任务
type Processor struct {
	queue      *queue.Queue
	indexer    Indexer
	workers    int
	maxRetries int
	backoff    time.Duration
}

// NewProcessor 创建任务处理器
func NewProcessor(q *queue.Queue, indexer Indexer, workers, maxRetries int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Processor{
		queue:      q,
		indexer:    indexer,
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

// Run 启动 workers 个消费协程，ctx 取消后等待全部退出
func (p *Processor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, workerID int) {
	log := logger.For(ctx).WithField("worker", workerID)
	for {
		if ctx.Err() != nil {
			log.Info("worker shutting down")
			return
		}

		msg, err := p.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("failed to pop index message")
			p.sleep(ctx, p.backoff)
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		p.Handle(ctx, msg)
	}
}

// Handle 处理一条任务，暂时性错误按指数退避重试
func (p *Processor) Handle(ctx context.Context, msg *queue.IndexMessage) error {
	log := logger.For(ctx).WithFields(logrus.Fields{
		"kind":      msg.Kind,
		"object_id": msg.ObjectID,
		"reason":    msg.Reason,
	})

	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * p.backoff
			log.WithField("attempt", attempt).Debugf("retrying after %v", wait)
			if !p.sleep(ctx, wait) {
				return ctx.Err()
			}
		}

		if err = p.indexer.Process(ctx, msg); err == nil {
			log.WithField("latency", time.Since(msg.EnqueuedAt)).Debug("index record refreshed")
			return nil
		}
		if !isTransient(err) {
			break
		}
	}

	logger.Report(ctx, err, "index message failed")
	return err
}

// isTransient 未知类型的任务重试也不会成功
func isTransient(err error) bool {
	return !errors.Is(err, service.ErrUnknownKind)
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
