package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inkblog/internal/config"
	"inkblog/internal/metrics"
	"inkblog/internal/models"
	"inkblog/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Published limits an article query to status == published.
func Published(db *gorm.DB) *gorm.DB {
	return db.Where("articles.status = ?", models.StatusPublished)
}

// Active limits a category query to categories shown to readers.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("categories.status = ?", true)
}

// activeOrdered is the preload condition for an article's visible categories.
func activeOrdered(db *gorm.DB) *gorm.DB {
	return db.Scopes(Active).Order("categories.position ASC, categories.id ASC")
}

// ArticlePage 分页结果
type ArticlePage struct {
	Articles   []models.Article
	Page       int
	TotalPages int
	Total      int64
}

func (p ArticlePage) HasPrev() bool { return p.Page > 1 }
func (p ArticlePage) HasNext() bool { return p.Page < p.TotalPages }
func (p ArticlePage) PrevPage() int { return p.Page - 1 }
func (p ArticlePage) NextPage() int { return p.Page + 1 }

// ArticleInput carries the editable fields of an article.
type ArticleInput struct {
	Title       string
	Slug        string
	Description string
	Thumbnail   string
	Publish     time.Time
	IsSpecial   bool
	Status      models.ArticleStatus
	CategoryIDs []uint
}

type BlogService struct {
	db      *gorm.DB
	cfg     config.BlogConfig
	authz   Authorizer
	ipCache *utils.TTLCache[string, uint]
	log     zerolog.Logger
}

func NewBlogService(gdb *gorm.DB, cfg config.BlogConfig, authz Authorizer, log zerolog.Logger) *BlogService {
	// 1024 entries with a positive size never fails
	cache, _ := utils.NewTTLCache[string, uint](1024, 10*time.Minute)
	return &BlogService{
		db:      gdb,
		cfg:     cfg,
		authz:   authz,
		ipCache: cache,
		log:     log.With().Str("component", "blog").Logger(),
	}
}

// RecordHit counts a view of the article from ip. It reports false when this
// IP was already counted for the article.
func (s *BlogService) RecordHit(ctx context.Context, articleID uint, ip string) (bool, error) {
	const op = "services.RecordHit"

	ip = strings.TrimSpace(ip)
	if ip == "" {
		return false, fmt.Errorf("%s: %w: empty ip address", op, ErrBadRequest)
	}

	ipID, err := s.ipAddressID(ctx, ip)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	hit := models.ArticleHit{ArticleID: articleID, IPAddressID: ipID}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&hit)
	if res.Error != nil {
		return false, fmt.Errorf("%s: %w", op, res.Error)
	}

	if res.RowsAffected == 0 {
		metrics.ArticleHits.WithLabelValues("duplicate").Inc()
		return false, nil
	}
	metrics.ArticleHits.WithLabelValues("recorded").Inc()
	return true, nil
}

func (s *BlogService) ipAddressID(ctx context.Context, ip string) (uint, error) {
	if id, ok := s.ipCache.Get(ip); ok {
		return id, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.IPAddress{IPAddress: ip}).Error; err != nil {
		return 0, err
	}

	var row models.IPAddress
	if err := db.Where("ip_address = ?", ip).First(&row).Error; err != nil {
		return 0, err
	}
	s.ipCache.Set(ip, row.ID)
	return row.ID, nil
}

// HitCount returns the number of distinct IPs that viewed the article.
func (s *BlogService) HitCount(ctx context.Context, articleID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ArticleHit{}).
		Where("article_id = ?", articleID).
		Count(&n).Error
	return n, err
}

// CategoryLabels returns the titles of the article's active categories,
// ordered by position and joined with ", ".
func (s *BlogService) CategoryLabels(ctx context.Context, articleID uint) (string, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).
		Joins("JOIN article_categories ON article_categories.category_id = categories.id").
		Where("article_categories.article_id = ?", articleID).
		Scopes(activeOrdered).
		Find(&cats).Error
	if err != nil {
		return "", fmt.Errorf("services.CategoryLabels: %w", err)
	}
	return JoinActiveTitles(cats), nil
}

// JoinActiveTitles is CategoryLabels for already loaded categories.
func JoinActiveTitles(cats []models.Category) string {
	active := make([]models.Category, 0, len(cats))
	for _, c := range cats {
		if c.Status {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Position < active[j].Position
	})

	titles := make([]string, len(active))
	for i, c := range active {
		titles[i] = c.Title
	}
	return strings.Join(titles, ", ")
}

func (s *BlogService) paginate(q *gorm.DB, page int) (ArticlePage, error) {
	if page < 1 {
		page = 1
	}
	perPage := s.cfg.PerPage

	var total int64
	if err := q.Session(&gorm.Session{}).Model(&models.Article{}).Count(&total).Error; err != nil {
		return ArticlePage{}, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if totalPages == 0 {
		totalPages = 1
	}

	var articles []models.Article
	err := q.Session(&gorm.Session{}).
		Preload("Author").
		Preload("Categories", activeOrdered).
		Order("articles.publish DESC, articles.id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&articles).Error
	if err != nil {
		return ArticlePage{}, err
	}

	return ArticlePage{
		Articles:   articles,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// ListPublished 首页文章列表
func (s *BlogService) ListPublished(ctx context.Context, page int) (ArticlePage, error) {
	q := s.db.WithContext(ctx).Model(&models.Article{}).Scopes(Published)
	p, err := s.paginate(q, page)
	if err != nil {
		return p, fmt.Errorf("services.ListPublished: %w", err)
	}
	return p, nil
}

// ListByCategory lists the published articles of an active category.
func (s *BlogService) ListByCategory(ctx context.Context, slug string, page int) (*models.Category, ArticlePage, error) {
	const op = "services.ListByCategory"

	var cat models.Category
	if err := s.db.WithContext(ctx).Scopes(Active).Where("slug = ?", slug).First(&cat).Error; err != nil {
		return nil, ArticlePage{}, notFound(op, err)
	}

	q := s.db.WithContext(ctx).Model(&models.Article{}).
		Joins("JOIN article_categories ON article_categories.article_id = articles.id").
		Where("article_categories.category_id = ?", cat.ID).
		Scopes(Published)
	p, err := s.paginate(q, page)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}
	return &cat, p, nil
}

func (s *BlogService) ListByAuthor(ctx context.Context, username string, page int) (*models.User, ArticlePage, error) {
	const op = "services.ListByAuthor"

	var author models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&author).Error; err != nil {
		return nil, ArticlePage{}, notFound(op, err)
	}

	q := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("articles.author_id = ?", author.ID).
		Scopes(Published)
	p, err := s.paginate(q, page)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}
	return &author, p, nil
}

// likeEscaper makes %, _ and \ match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches q case-insensitively against title and body.
// An empty query yields an empty page.
func (s *BlogService) Search(ctx context.Context, q string, page int) (ArticlePage, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return ArticlePage{Page: 1, TotalPages: 1}, nil
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	query := s.db.WithContext(ctx).Model(&models.Article{}).
		Where(`LOWER(articles.title) LIKE ? ESCAPE '\' OR LOWER(articles.description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Scopes(Published)
	p, err := s.paginate(query, page)
	if err != nil {
		return p, fmt.Errorf("services.Search: %w", err)
	}
	return p, nil
}

// ArticleBySlug returns a published article; drafts are NotFound.
func (s *BlogService) ArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Categories", activeOrdered).
		Scopes(Published).
		Where("articles.slug = ?", slug).
		First(&article).Error
	if err != nil {
		return nil, notFound("services.ArticleBySlug", err)
	}
	return &article, nil
}

// ArticleForPreview returns an article in any status to its author or an admin.
func (s *BlogService) ArticleForPreview(ctx context.Context, id uint, requester *models.User) (*models.Article, error) {
	const op = "services.ArticleForPreview"

	if requester == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	var article models.Article
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Categories", activeOrdered).
		First(&article, id).Error
	if err != nil {
		return nil, notFound(op, err)
	}

	if !s.canEdit(&article, requester) {
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}
	return &article, nil
}

func (s *BlogService) canEdit(a *models.Article, u *models.User) bool {
	if u == nil {
		return false
	}
	if a.AuthorID != nil && *a.AuthorID == u.ID {
		return true
	}
	return s.authz.IsAdmin(u)
}

func (in *ArticleInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Title == "" || in.Slug == "" {
		return fmt.Errorf("%w: title and slug are required", ErrBadRequest)
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrBadRequest, in.Status)
	}
	if in.Publish.IsZero() {
		in.Publish = time.Now()
	}
	return nil
}

func slugTaken(tx *gorm.DB, slug string, exceptID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Article{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&n).Error
	return n > 0, err
}

func (s *BlogService) CreateArticle(ctx context.Context, in ArticleInput, author *models.User) (*models.Article, error) {
	const op = "services.CreateArticle"

	if author == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if err := in.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	article := models.Article{
		AuthorID:    &author.ID,
		Title:       in.Title,
		Slug:        in.Slug,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		Publish:     in.Publish,
		IsSpecial:   in.IsSpecial,
		Status:      in.Status,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := slugTaken(tx, in.Slug, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlugTaken
		}
		if err := tx.Create(&article).Error; err != nil {
			return err
		}
		return replaceCategories(tx, &article, in.CategoryIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Uint("article_id", article.ID).Str("slug", article.Slug).Msg("Article created")
	return &article, nil
}

// UpdateArticle replaces the article's fields and categories. Only the author
// or an admin may edit.
func (s *BlogService) UpdateArticle(ctx context.Context, id uint, in ArticleInput, requester *models.User) (*models.Article, error) {
	const op = "services.UpdateArticle"

	if requester == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if err := in.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var article models.Article
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&article, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !s.canEdit(&article, requester) {
			return ErrPermissionDenied
		}

		taken, err := slugTaken(tx, in.Slug, article.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlugTaken
		}

		article.Title = in.Title
		article.Slug = in.Slug
		article.Description = in.Description
		article.Thumbnail = in.Thumbnail
		article.Publish = in.Publish
		article.IsSpecial = in.IsSpecial
		article.Status = in.Status
		if err := tx.Save(&article).Error; err != nil {
			return err
		}
		return replaceCategories(tx, &article, in.CategoryIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &article, nil
}

func replaceCategories(tx *gorm.DB, article *models.Article, ids []uint) error {
	if len(ids) == 0 {
		return tx.Model(article).Association("Categories").Clear()
	}

	var cats []models.Category
	if err := tx.Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return err
	}
	if len(cats) != len(uniqueIDs(ids)) {
		return fmt.Errorf("%w: unknown category", ErrNotFound)
	}
	return tx.Model(article).Association("Categories").Replace(cats)
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ActiveCategories 导航栏分类，根分类在前
func (s *BlogService) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).
		Scopes(Active).
		Order("COALESCE(parent_id, 0) ASC, position ASC, id ASC").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("services.ActiveCategories: %w", err)
	}
	return cats, nil
}

func (s *BlogService) CreateCategory(ctx context.Context, title, slug string, parentID *uint, position int) (*models.Category, error) {
	const op = "services.CreateCategory"

	title, slug = strings.TrimSpace(title), strings.TrimSpace(slug)
	if title == "" || slug == "" {
		return nil, fmt.Errorf("%s: %w: title and slug are required", op, ErrBadRequest)
	}

	cat := models.Category{Title: title, Slug: slug, ParentID: parentID, Position: position, Status: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Category{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlugTaken
		}
		if parentID != nil {
			if err := tx.First(&models.Category{}, *parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
		}
		return tx.Create(&cat).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cat, nil
}

// SetCategoryParent re-parents a category. A nil parent makes it a root.
// Walking from the new parent up to the root must never reach the category
// itself.
func (s *BlogService) SetCategoryParent(ctx context.Context, id uint, parentID *uint) error {
	const op = "services.SetCategoryParent"

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			return notFound(op, err)
		}

		if parentID != nil {
			visited := map[uint]bool{}
			cur := *parentID
			for {
				if cur == id {
					return fmt.Errorf("%s: %w", op, ErrCategoryCycle)
				}
				if visited[cur] {
					break
				}
				visited[cur] = true

				var p models.Category
				if err := tx.Select("id", "parent_id").First(&p, cur).Error; err != nil {
					return notFound(op, err)
				}
				if p.ParentID == nil {
					break
				}
				cur = *p.ParentID
			}
		}

		if err := tx.Model(&cat).Update("parent_id", parentID).Error; err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

func (s *BlogService) SetCategoryActive(ctx context.Context, id uint, active bool) error {
	res := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("status", active)
	if res.Error != nil {
		return fmt.Errorf("services.SetCategoryActive: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("services.SetCategoryActive: %w", ErrNotFound)
	}
	return nil
}

// RecentPublished returns up to limit published articles, newest first.
func (s *BlogService) RecentPublished(ctx context.Context, limit int) ([]models.Article, error) {
	var articles []models.Article
	err := s.db.WithContext(ctx).
		Scopes(Published).
		Order("articles.publish DESC, articles.id DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("services.RecentPublished: %w", err)
	}
	return articles, nil
}

// AdminArticles lists every article regardless of status, newest first.
func (s *BlogService) AdminArticles(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Categories").
		Order("status DESC, publish DESC").
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("services.AdminArticles: %w", err)
	}
	return articles, nil
}

// BulkSetStatus sets status on every listed article and returns the number
// of rows updated.
func (s *BlogService) BulkSetStatus(ctx context.Context, ids []uint, status models.ArticleStatus) (int64, error) {
	const op = "services.BulkSetStatus"

	if !status.Valid() {
		return 0, fmt.Errorf("%s: %w: unknown status %q", op, ErrBadRequest, status)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("id IN ?", ids).
		Update("status", status)
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, res.Error)
	}

	s.log.Info().Int64("rows", res.RowsAffected).Str("status", status.Label()).Msg("Bulk status update")
	return res.RowsAffected, nil
}

// BulkStatusMessage is the admin feedback line for a bulk status change.
func BulkStatusMessage(status models.ArticleStatus, n int64) string {
	verb := "published"
	if status == models.StatusDraft {
		verb = "marked as draft"
	} else if status != models.StatusPublished {
		verb = "set to " + status.Label()
	}

	if n == 1 {
		return fmt.Sprintf("1 article was %s.", verb)
	}
	return fmt.Sprintf("%d articles were %s.", n, verb)
}
