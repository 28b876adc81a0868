package cron

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
)

// AvatarSource 提供仍被引用的头像 key
type AvatarSource func() ([]string, error)

type Service struct {
	store    storage.Storage
	sources  []AvatarSource
	grace    time.Duration
	interval time.Duration
	stopChan chan struct{}
	now      func() time.Time
}

func NewService(store storage.Storage, grace, interval time.Duration, sources ...AvatarSource) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		store:    store,
		sources:  sources,
		grace:    grace,
		interval: interval,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runSweep()
	logger.Base().WithField("interval", s.interval).Info("cron service started (avatar sweep)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	logger.Base().Info("cron service stopped")
}

func (s *Service) runSweep() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			if _, err := s.SweepAvatars(ctx); err != nil {
				logger.Report(ctx, err, "avatar sweep failed")
			}
			cancel()
		}
	}
}

// SweepAvatars 删除不再被任何用户或评论引用、且超过保留时间的拉取头像
func (s *Service) SweepAvatars(ctx context.Context) (int, error) {
	referenced := make(map[string]struct{})
	for _, source := range s.sources {
		keys, err := source()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			referenced[key] = struct{}{}
		}
	}

	objects, err := s.store.List(ctx, avatar.FetchedPrefix)
	if err != nil {
		return 0, err
	}

	log := logger.For(ctx).WithField("component", "avatar_sweep")
	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		// 刚拉取的头像可能属于尚未提交的评论
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			log.WithError(err).WithField("key", obj.Key).Warn("delete orphan avatar failed")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.WithFields(logrus.Fields{"removed": removed, "scanned": len(objects)}).Info("orphan avatars removed")
	}
	return removed, nil
}
