package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/database"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/cron"
	"github.com/qs3c/pec_go_server/internal/pkg/email"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/mailchimp"
	"github.com/qs3c/pec_go_server/internal/pkg/oauth"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/pkg/queue"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
	"github.com/qs3c/pec_go_server/internal/repository"
	"github.com/qs3c/pec_go_server/internal/service"
)

// App server、worker、manage 共用的依赖
type App struct {
	Cfg     *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Store   storage.Storage
	Queue   *queue.Queue
	Avatars *avatar.Resolver

	UserRepo    *repository.UserRepository
	CommentRepo *repository.CommentRepository

	Auth     *service.AuthService
	Users    *service.UserService
	Comments *service.CommentService
	Recipes  *service.RecipeService
	Stories  *service.StoryService
	Index    *service.IndexService
	Uploads  *service.UploadService
	Basic    *service.BasicService
}

// New 连接数据库、Redis 和存储并组装各 service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.For(ctx).WithField("driver", cfg.Database.Driver).Info("database connected")

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.For(ctx).Info("redis connected")

	store, err := storage.New(ctx, &cfg.Storage, cfg.Server.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	mailer, err := email.NewSender(&cfg.Email)
	if err != nil {
		return nil, err
	}

	a := &App{
		Cfg:   cfg,
		DB:    db,
		Redis: rdb,
		Store: store,
		Queue: queue.NewQueue(rdb, cfg.Index.Queue),
	}

	userRepo := repository.NewUserRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	tagRepo := repository.NewTagRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	a.UserRepo = userRepo
	a.CommentRepo = commentRepo

	a.Avatars = avatar.NewResolver(store, &cfg.Avatar, cfg.Server.StaticURL)
	presenter := service.NewPresenter(a.Avatars, store)

	// 同步模式下在请求内直接刷新索引
	var indexQueue *queue.Queue
	if cfg.Index.Async {
		indexQueue = a.Queue
	}
	a.Index = service.NewIndexService(recipeRepo, storyRepo, commentRepo, searchRepo, indexQueue, presenter)
	a.Uploads = service.NewUploadService(store, &cfg.Upload)

	notifier := service.NewNotificationService(commentRepo, mailer, a.Avatars, cfg)
	a.Comments = service.NewCommentService(
		commentRepo, recipeRepo, storyRepo, userRepo,
		a.Avatars, a.Index, notifier, pubsub.NewPublisher(rdb), presenter,
	)
	a.Auth = service.NewAuthService(userRepo, a.Avatars, presenter, oauth.NewStateStore(rdb, &cfg.OAuth), cfg)
	a.Users = service.NewUserService(userRepo, commentRepo, a.Uploads, a.Index, presenter)
	a.Recipes = service.NewRecipeService(recipeRepo, categoryRepo, tagRepo, a.Uploads, a.Index, presenter)
	a.Stories = service.NewStoryService(storyRepo, tagRepo, userRepo, a.Uploads, a.Index, presenter)
	a.Basic = service.NewBasicService(mailer, mailchimp.NewClient(&cfg.Mailchimp), &cfg.Email)

	return a, nil
}

// AvatarSweeper 清理不再被引用的拉取头像
func (a *App) AvatarSweeper() *cron.Service {
	return cron.NewService(
		a.Store,
		a.Cfg.Avatar.SweepGrace,
		a.Cfg.Avatar.SweepSchedule,
		a.UserRepo.ListAvatars,
		a.CommentRepo.ListUnregisteredAvatars,
	)
}

// Close 释放连接
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		logger.Base().WithError(err).Warn("close redis failed")
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
