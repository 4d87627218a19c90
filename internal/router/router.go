package router

import (
	"inkblog/internal/config"
	"inkblog/internal/handlers"
	"inkblog/internal/middleware"
	"inkblog/internal/services"
	"inkblog/internal/views"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer is built from.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       zerolog.Logger
	Views     *views.Templates
	StaticDir string

	Blog      *services.BlogService
	Ranking   *services.RankingService
	Comments  *services.CommentService
	Reactions *services.ReactionService
	Flags     *services.FlagService
	Users     *services.UserService
	Authz     services.Authorizer
	Captcha   services.Challenger // nil 关闭注册验证码
}

// New builds the gin engine with middleware, sessions and templates.
func New(d Deps) *gin.Engine {
	r := gin.New()
	// 只信任配置的代理，ClientIP 决定文章点击的去重
	if err := r.SetTrustedProxies(d.Config.HTTP.TrustedProxies); err != nil {
		d.Log.Error().Err(err).Msg("Invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Logger(d.Log))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	store := cookie.NewStore([]byte(d.Config.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   d.Config.Env == config.EnvProd,
	})
	r.Use(sessions.Sessions(d.Config.Session.Name, store))

	r.HTMLRender = d.Views

	if d.StaticDir != "" {
		r.Static("/static", d.StaticDir)
	}

	r.Use(middleware.LoadUser(d.DB))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	site := &handlers.Site{
		Blog:    d.Blog,
		Ranking: d.Ranking,
		Authz:   d.Authz,
		Views:   d.Views,
		Config:  d.Config.Site,
		Log:     d.Log.With().Str("component", "http").Logger(),
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(site, d.Users, d.Captcha)
	articleHandler := handlers.NewArticleHandler(site, d.Comments)
	commentHandler := handlers.NewCommentHandler(site, d.Comments, d.Reactions, d.Flags)
	adminHandler := handlers.NewAdminHandler(site, d.Flags, d.Reactions)
	seoHandler := handlers.NewSEOHandler(site)

	// 公共路由 (Public Routes)
	r.GET("/", articleHandler.Index)                  // 首页 - 最新文章
	r.GET("/article/:slug", articleHandler.Detail)    // 文章详情页
	r.GET("/category/:slug", articleHandler.Category) // 分类下的文章列表
	r.GET("/author/:username", articleHandler.Author) // 作者的文章列表
	r.GET("/search", articleHandler.Search)           // 搜索页面
	r.GET("/sitemap.xml", seoHandler.SitemapXML)      // 站点地图
	r.GET("/robots.txt", seoHandler.RobotsTxt)        // robots.txt
	r.GET("/feed.xml", seoHandler.RSSFeed)            // RSS
	r.GET("/healthz", seoHandler.Healthz)             // 存活检查
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))  // prometheus

	r.GET("/signup", authHandler.ShowRegister) // 注册页面
	r.POST("/signup", authHandler.Register)    // 提交注册
	r.GET("/login", authHandler.ShowLogin)     // 登录页面
	r.POST("/login", authHandler.Login)        // 提交登录
	r.GET("/logout", authHandler.Logout)       // 退出登录

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/preview/:id", articleHandler.Preview) // 预览未发布文章
	}

	// 评论接口只接受 AJAX 请求
	comment := r.Group("/comment")
	comment.Use(middleware.AuthRequired(), middleware.AjaxOnly())
	{
		comment.POST("/create", commentHandler.Create)                // 发表评论/回复
		comment.GET("/:id/edit", commentHandler.EditForm)             // 编辑弹窗
		comment.POST("/:id/edit", commentHandler.Edit)                // 提交编辑
		comment.GET("/:id/delete", commentHandler.DeleteForm)         // 删除确认弹窗
		comment.POST("/:id/delete", commentHandler.Delete)            // 删除评论
		comment.POST("/:id/react/:type", commentHandler.React)        // 点赞/点踩
		comment.POST("/:id/flag", commentHandler.Flag)                // 举报
		comment.POST("/:id/unflag", commentHandler.Unflag)            // 撤回举报
		comment.POST("/:id/flag/resolve", commentHandler.ResolveFlag) // 版主处理举报
	}

	// 管理后台路由 (Admin Routes)
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired())
	{
		admin.GET("/articles", adminHandler.Articles)             // 文章管理
		admin.POST("/articles/status", adminHandler.UpdateStatus) // 批量发布/转草稿
		admin.GET("/flags", adminHandler.Flags)                   // 举报队列
		admin.GET("/reactions", adminHandler.Reactions)           // 点赞明细
	}
}
