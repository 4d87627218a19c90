package services

import (
	"context"
	"fmt"
	"sync"

	"inkblog/internal/models"

	"gorm.io/gorm"
)

// ArticleContentType is the registry key comments use for blog articles.
const ArticleContentType = "blog.article"

// Commentable is anything a comment can be attached to.
type Commentable interface {
	ContentType() string
	ObjectID() uint
	TargetTitle() string
	TargetURL() string
	// TargetAuthor may be nil when the owner was removed.
	TargetAuthor() *models.User
}

// TargetResolver loads a Commentable of one content type by id.
type TargetResolver func(ctx context.Context, id uint) (Commentable, error)

// TargetRegistry maps "app.model" keys to resolvers.
type TargetRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]TargetResolver
}

func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{resolvers: make(map[string]TargetResolver)}
}

func (r *TargetRegistry) Register(contentType string, resolve TargetResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[contentType] = resolve
}

// Resolve finds the target. Unknown content types and missing rows are NotFound.
func (r *TargetRegistry) Resolve(ctx context.Context, contentType string, id uint) (Commentable, error) {
	r.mu.RLock()
	resolve, ok := r.resolvers[contentType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown content type %q: %w", contentType, ErrNotFound)
	}
	return resolve(ctx, id)
}

type articleTarget struct {
	article *models.Article
}

func (t articleTarget) ContentType() string { return ArticleContentType }
func (t articleTarget) ObjectID() uint { return t.article.ID }
func (t articleTarget) TargetTitle() string { return t.article.Title }
func (t articleTarget) TargetURL() string { return "/article/" + t.article.Slug }
func (t articleTarget) TargetAuthor() *models.User { return t.article.Author }

// ArticleResolver resolves published articles with their author.
func ArticleResolver(gdb *gorm.DB) TargetResolver {
	return func(ctx context.Context, id uint) (Commentable, error) {
		var article models.Article
		err := gdb.WithContext(ctx).
			Preload("Author").
			Scopes(Published).
			First(&article, id).Error
		if err != nil {
			return nil, notFound("services.ArticleResolver", err)
		}
		return articleTarget{article: &article}, nil
	}
}
