package services

import (
	"context"
	"fmt"
	"time"

	"inkblog/internal/config"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// RankedArticle 排行榜条目：文章摘要加统计数
type RankedArticle struct {
	ID        uint
	Title     string
	Slug      string
	Thumbnail string
	Publish   time.Time
	Count     int64 `gorm:"column:rank_count"`
}

// Sidebar holds both monthly rankings shown beside every page.
type Sidebar struct {
	Popular []RankedArticle
	Hot     []RankedArticle
}

// RankingService 计算热门文章排行，每次请求实时统计
type RankingService struct {
	db  *gorm.DB
	cfg config.BlogConfig
	log zerolog.Logger
	now func() time.Time
}

func NewRankingService(gdb *gorm.DB, cfg config.BlogConfig, log zerolog.Logger) *RankingService {
	return &RankingService{
		db:  gdb,
		cfg: cfg,
		log: log.With().Str("component", "ranking").Logger(),
		now: time.Now,
	}
}

// Popular ranks published articles by distinct hits inside the window ending at now.
func (s *RankingService) Popular(ctx context.Context, now time.Time) ([]RankedArticle, error) {
	since := now.Add(-s.cfg.RankingWindow)
	rows, err := s.rank(ctx,
		"COUNT(DISTINCT article_hits.id)",
		"LEFT JOIN article_hits ON article_hits.article_id = articles.id AND article_hits.created_at > ?",
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("services.Popular: %w", err)
	}
	return rows, nil
}

// Hot ranks published articles by comments posted on them inside the window.
func (s *RankingService) Hot(ctx context.Context, now time.Time) ([]RankedArticle, error) {
	since := now.Add(-s.cfg.RankingWindow)
	rows, err := s.rank(ctx,
		"COUNT(DISTINCT comments.id)",
		"LEFT JOIN comments ON comments.object_id = articles.id AND comments.content_type = ? AND comments.posted > ?",
		ArticleContentType, since,
	)
	if err != nil {
		return nil, fmt.Errorf("services.Hot: %w", err)
	}
	return rows, nil
}

func (s *RankingService) rank(ctx context.Context, countExpr, join string, args ...interface{}) ([]RankedArticle, error) {
	var rows []RankedArticle
	err := s.db.WithContext(ctx).
		Table("articles").
		Select("articles.id, articles.title, articles.slug, articles.thumbnail, articles.publish, "+countExpr+" AS rank_count").
		Joins(join, args...).
		Scopes(Published).
		Group("articles.id, articles.title, articles.slug, articles.thumbnail, articles.publish").
		Order("rank_count DESC, articles.publish DESC, articles.id DESC").
		Limit(s.cfg.RankingSize).
		Scan(&rows).Error
	return rows, err
}

// Sidebar computes both rankings concurrently.
func (s *RankingService) Sidebar(ctx context.Context) (Sidebar, error) {
	now := s.now()
	var sb Sidebar

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.Popular(gctx, now)
		sb.Popular = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.Hot(gctx, now)
		sb.Hot = rows
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("Failed to compute sidebar rankings")
		return Sidebar{}, err
	}
	return sb, nil
}
