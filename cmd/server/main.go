package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"inkblog/internal/config"
	"inkblog/internal/db"
	"inkblog/internal/logger"
	"inkblog/internal/router"
	"inkblog/internal/services"
	"inkblog/internal/views"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	templatesDir := flag.String("templates", "./web/templates", "templates directory")
	staticDir := flag.String("static", "./web/static", "static assets directory")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	log := logger.New(cfg.Log.Level, cfg.Log.Format, "inkblog")

	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	gdb, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	if err := db.SeedCategories(gdb, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed categories")
	}

	tmpl, err := views.Load(*templatesDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	// Services
	authz := services.RoleAuthorizer{}
	mailer := services.NewMailService(cfg.Mail, cfg.Site.Name, log)
	notifier, err := services.NewNotifier(mailer, cfg.Site, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build notifier")
	}
	targets := services.NewTargetRegistry()
	targets.Register(services.ArticleContentType, services.ArticleResolver(gdb))

	engine := router.New(router.Deps{
		DB:        gdb,
		Config:    cfg,
		Log:       log,
		Views:     tmpl,
		StaticDir: *staticDir,
		Blog:      services.NewBlogService(gdb, cfg.Blog, authz, log),
		Ranking:   services.NewRankingService(gdb, cfg.Blog, log),
		Comments:  services.NewCommentService(gdb, cfg.Blog, authz, targets, notifier, log),
		Reactions: services.NewReactionService(gdb, log),
		Flags:     services.NewFlagService(gdb, cfg.Blog, authz, log),
		Users:     services.NewUserService(gdb),
		Authz:     authz,
		Captcha:   services.NewMathCaptcha(),
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("Inkblog server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// 等待未发送完的评论通知
	notifier.Wait()

	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("Server exited")
}
