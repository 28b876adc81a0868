package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/api/handler"
	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/pkg/pagecache"
	"github.com/qs3c/pec_go_server/internal/pkg/ratelimit"
)

// 限流作用域，对应配置 throttle.limits
const (
	ScopeComment    = "comment"
	ScopeContact    = "contact"
	ScopeNewsletter = "newsletter"
	ScopeAuth       = "auth"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	commentHandler   *handler.CommentHandler
	recipeHandler    *handler.RecipeHandler
	storyHandler     *handler.StoryHandler
	searchHandler    *handler.SearchHandler
	basicHandler     *handler.BasicHandler
	uploadHandler    *handler.UploadHandler
	websocketHandler *handler.WebSocketHandler
	limiter          *ratelimit.Limiter
	cache            *pagecache.Cache
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	commentHandler *handler.CommentHandler,
	recipeHandler *handler.RecipeHandler,
	storyHandler *handler.StoryHandler,
	searchHandler *handler.SearchHandler,
	basicHandler *handler.BasicHandler,
	uploadHandler *handler.UploadHandler,
	websocketHandler *handler.WebSocketHandler,
	limiter *ratelimit.Limiter,
	cache *pagecache.Cache,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		commentHandler:   commentHandler,
		recipeHandler:    recipeHandler,
		storyHandler:     storyHandler,
		searchHandler:    searchHandler,
		basicHandler:     basicHandler,
		uploadHandler:    uploadHandler,
		websocketHandler: websocketHandler,
		limiter:          limiter,
		cache:            cache,
		cfg:              cfg,
	}
}

func (r *Router) throttle(scope string) gin.HandlerFunc {
	return middleware.Throttle(r.limiter, scope, r.cfg.Throttle.Limits[scope])
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.serveFiles(engine)

	api := engine.Group("/api/v1")
	{
		// WebSocket，token 通过查询参数传递
		api.GET("/ws/moderation", r.websocketHandler.Moderation)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.throttle(ScopeAuth), r.authHandler.Register)
			auth.POST("/login", r.throttle(ScopeAuth), r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.Refresh)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 以下接口可选认证
		public := api.Group("")
		public.Use(middleware.OptionalAuth(r.cfg.JWT.Secret))

		public.POST("/contact", r.throttle(ScopeContact), r.basicHandler.Contact)
		public.POST("/newsletter", r.throttle(ScopeNewsletter), r.basicHandler.Newsletter)
		public.GET("/search", r.searchHandler.Search)

		// 读接口对匿名用户缓存，写接口成功后清空缓存
		cached := public.Group("")
		cached.Use(middleware.CachePage(r.cache))

		recipes := cached.Group("/recipes")
		{
			recipes.GET("", r.recipeHandler.List)
			recipes.GET("/categories", r.recipeHandler.Categories)
			recipes.GET("/tags", r.recipeHandler.Tags)
			recipes.GET("/:slug", r.recipeHandler.Get)
			recipes.POST("", r.recipeHandler.Create)
			recipes.PATCH("/:slug", r.recipeHandler.Update)
			recipes.DELETE("/:slug", r.recipeHandler.Delete)
		}

		stories := cached.Group("/stories")
		{
			stories.GET("", r.storyHandler.List)
			stories.GET("/:slug", r.storyHandler.Get)
			stories.POST("", r.storyHandler.Create)
			stories.PATCH("/:slug", r.storyHandler.Update)
			stories.DELETE("/:slug", r.storyHandler.Delete)
		}

		// 匿名用户也可以发表评论
		comments := cached.Group("/comments")
		{
			comments.GET("", r.commentHandler.List)
			comments.GET("/:id", r.commentHandler.Get)
			comments.POST("", r.throttle(ScopeComment), r.commentHandler.Create)
			comments.PATCH("/:id", r.commentHandler.Update)
			comments.DELETE("/:id", r.commentHandler.Delete)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			users := authenticated.Group("/users")
			{
				users.GET("", r.userHandler.List)
				users.GET("/me", r.userHandler.Me)
				users.POST("/me/avatar", r.userHandler.UploadAvatar)
				users.GET("/:id", r.userHandler.Get)
				users.PATCH("/:id", r.userHandler.Update)
				users.DELETE("/:id", r.userHandler.Delete)
			}

			authenticated.POST("/uploads/image", middleware.StaffOnly(), r.uploadHandler.Image)
		}
	}

	return engine
}

// serveFiles 本地存储和默认头像使用相对地址时由本服务直接提供
func (r *Router) serveFiles(engine *gin.Engine) {
	if r.cfg.Storage.Driver == "local" {
		if prefix := localPrefix(r.cfg.Storage.Local.MediaURL); prefix != "" {
			engine.Static(prefix, r.cfg.Storage.Local.Root)
		}
	}
	if prefix := localPrefix(r.cfg.Server.StaticURL); prefix != "" && r.cfg.Server.StaticRoot != "" {
		engine.Static(prefix, r.cfg.Server.StaticRoot)
	}
}

func localPrefix(url string) string {
	if !strings.HasPrefix(url, "/") || strings.HasPrefix(url, "//") {
		return ""
	}
	return strings.TrimSuffix(url, "/")
}
