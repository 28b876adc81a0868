package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/jwt"
	"github.com/qs3c/pec_go_server/internal/pkg/oauth"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
	"github.com/qs3c/pec_go_server/internal/repository"
	"github.com/qs3c/pec_go_server/internal/service"
	"github.com/qs3c/pec_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key"

// pngBytes 足以被识别为 PNG 的最小内容
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

type nopPublisher struct{}

func (nopPublisher) PublishModeration(ctx context.Context, msg *pubsub.ModerationMessage) error {
	return nil
}

type testContext struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer *testutil.FakeMailer

	CommentRepo *repository.CommentRepository
	UserRepo    *repository.UserRepository

	Auth     *AuthHandler
	Comments *CommentHandler
	Users    *UserHandler
	Recipes  *RecipeHandler
	Stories  *StoryHandler
	Search   *SearchHandler
	Uploads  *UploadHandler
}

func setupTestContext(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	rdb, _ := testutil.SetupTestRedis(t)

	gravatar := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(gravatar.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: "https://pec.test", StaticURL: "https://pec.test/static/"},
		JWT:    config.JWTConfig{Secret: testJWTSecret, ExpireHours: 1, RefreshHours: 24},
		Avatar: config.AvatarConfig{
			GravatarURL: gravatar.URL + "/avatar/",
			DefaultPath: "comment/avatars/default_avatar_%d.svg",
		},
		Email:  config.EmailConfig{SiteName: "Pâtisserie et Cuisine"},
		Upload: config.UploadConfig{MaxSize: 1 << 20},
	}

	store := storage.NewLocal(afero.NewMemMapFs(), "https://pec.test/media/")
	mailer := &testutil.FakeMailer{}

	commentRepo := repository.NewCommentRepository(db)
	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	tagRepo := repository.NewTagRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	avatars := avatar.NewResolver(store, &cfg.Avatar, cfg.Server.StaticURL)
	presenter := service.NewPresenter(avatars, store)
	index := service.NewIndexService(recipeRepo, storyRepo, commentRepo, searchRepo, nil, presenter)
	notifier := service.NewNotificationService(commentRepo, mailer, avatars, cfg)
	uploads := service.NewUploadService(store, &cfg.Upload)

	comments := service.NewCommentService(
		commentRepo, recipeRepo, storyRepo, userRepo,
		avatars, index, notifier, nopPublisher{}, presenter,
	)
	users := service.NewUserService(userRepo, commentRepo, uploads, index, presenter)
	auth := service.NewAuthService(userRepo, avatars, presenter, oauth.NewStateStore(rdb, &cfg.OAuth), cfg)
	recipes := service.NewRecipeService(recipeRepo, categoryRepo, tagRepo, uploads, index, presenter)
	stories := service.NewStoryService(storyRepo, tagRepo, userRepo, uploads, index, presenter)

	return &testContext{
		DB:          db,
		Cfg:         cfg,
		Mailer:      mailer,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Auth:        NewAuthHandler(auth),
		Comments:    NewCommentHandler(comments),
		Users:       NewUserHandler(users, cfg.Upload.MaxSize),
		Recipes:     NewRecipeHandler(recipes),
		Stories:     NewStoryHandler(stories),
		Search:      NewSearchHandler(index),
		Uploads:     NewUploadHandler(uploads, &cfg.Upload),
	}
}

// newRouter 使用与线上相同的可选认证中间件
func newRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.OptionalAuth(testJWTSecret))
	return router
}

func bearer(t *testing.T, userID string, isStaff bool) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, isStaff, testJWTSecret, 1)
	require.NoError(t, err)
	return "Bearer " + token
}

func performRequest(r http.Handler, method, path string, body interface{}, authorization ...string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if len(authorization) > 0 {
		req.Header.Set("Authorization", authorization[0])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func performUpload(r http.Handler, path, field string, content []byte, authorization string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if content != nil {
		part, _ := writer.CreateFormFile(field, "image.png")
		part.Write(content)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// fieldErrors 取出校验错误响应中的字段 -> 错误码
func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	var resp struct {
		Code int                 `json:"code"`
		Data map[string][]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, response.CodeParamError, resp.Code)
	return resp.Data
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
