package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/oauth"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
	"github.com/qs3c/pec_go_server/internal/repository"
	"github.com/qs3c/pec_go_server/internal/testutil"
)

// pngBytes 足以被识别为 PNG 的最小内容
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

type fakePublisher struct {
	mu     sync.Mutex
	events []*pubsub.ModerationMessage
}

func (p *fakePublisher) PublishModeration(ctx context.Context, msg *pubsub.ModerationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeSubscriber struct {
	status string
	err    error
	emails []string
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, email string) (string, error) {
	s.emails = append(s.emails, email)
	return s.status, s.err
}

// testEnv 服务层测试依赖：内存数据库、miniredis、内存存储、假 gravatar 和假邮件
type testEnv struct {
	db        *gorm.DB
	rdb       *redis.Client
	mr        *miniredis.Miniredis
	cfg       *config.Config
	store     storage.Storage
	mailer    *testutil.FakeMailer
	publisher *fakePublisher

	// gravatarFound 为 1 时假 gravatar 返回图片，否则 404
	gravatarFound int32
	gravatarHits  int32

	commentRepo  *repository.CommentRepository
	userRepo     *repository.UserRepository
	recipeRepo   *repository.RecipeRepository
	storyRepo    *repository.StoryRepository
	searchRepo   *repository.SearchRepository
	tagRepo      *repository.TagRepository
	categoryRepo *repository.CategoryRepository

	avatars   *avatar.Resolver
	presenter *Presenter
	index     *IndexService
	notifier  *NotificationService
	uploads   *UploadService
	comments  *CommentService
	users     *UserService
	auth      *AuthService
	recipes   *RecipeService
	stories   *StoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		mailer:    &testutil.FakeMailer{},
		publisher: &fakePublisher{},
	}

	env.db = testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, env.db) })
	env.rdb, env.mr = testutil.SetupTestRedis(t)

	gravatar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&env.gravatarHits, 1)
		if atomic.LoadInt32(&env.gravatarFound) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(gravatar.Close)

	env.cfg = &config.Config{
		Server: config.ServerConfig{PublicURL: "https://pec.test", StaticURL: "https://pec.test/static/"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireHours: 1, RefreshHours: 24},
		Avatar: config.AvatarConfig{
			GravatarURL: gravatar.URL + "/avatar/",
			Salt:        "pepper",
			DefaultPath: "comment/avatars/default_avatar_%d.svg",
		},
		Email: config.EmailConfig{
			SiteName:    "Pâtisserie et Cuisine",
			StaffEmails: []string{"staff@pec.test"},
		},
		Upload: config.UploadConfig{MaxSize: 1 << 20},
	}

	env.store = storage.NewLocal(afero.NewMemMapFs(), "https://pec.test/media/")

	env.commentRepo = repository.NewCommentRepository(env.db)
	env.userRepo = repository.NewUserRepository(env.db)
	env.recipeRepo = repository.NewRecipeRepository(env.db)
	env.storyRepo = repository.NewStoryRepository(env.db)
	env.searchRepo = repository.NewSearchRepository(env.db)
	env.tagRepo = repository.NewTagRepository(env.db)
	env.categoryRepo = repository.NewCategoryRepository(env.db)

	env.avatars = avatar.NewResolver(env.store, &env.cfg.Avatar, env.cfg.Server.StaticURL)
	env.presenter = NewPresenter(env.avatars, env.store)
	env.index = NewIndexService(env.recipeRepo, env.storyRepo, env.commentRepo, env.searchRepo, nil, env.presenter)
	env.notifier = NewNotificationService(env.commentRepo, env.mailer, env.avatars, env.cfg)
	env.uploads = NewUploadService(env.store, &env.cfg.Upload)
	env.comments = NewCommentService(
		env.commentRepo, env.recipeRepo, env.storyRepo, env.userRepo,
		env.avatars, env.index, env.notifier, env.publisher, env.presenter,
	)
	env.users = NewUserService(env.userRepo, env.commentRepo, env.uploads, env.index, env.presenter)
	env.auth = NewAuthService(env.userRepo, env.avatars, env.presenter, oauth.NewStateStore(env.rdb, &env.cfg.OAuth), env.cfg)
	env.recipes = NewRecipeService(env.recipeRepo, env.categoryRepo, env.tagRepo, env.uploads, env.index, env.presenter)
	env.stories = NewStoryService(env.storyRepo, env.tagRepo, env.userRepo, env.uploads, env.index, env.presenter)

	return env
}

func (e *testEnv) serveGravatar(found bool) {
	var v int32
	if found {
		v = 1
	}
	atomic.StoreInt32(&e.gravatarFound, v)
}

func (e *testEnv) hits() int32 {
	return atomic.LoadInt32(&e.gravatarHits)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func staff(id string) Actor { return Actor{UserID: id, IsStaff: true} }

func member(id string) Actor { return Actor{UserID: id} }
