package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inkblog/internal/config"
	"inkblog/internal/db"
	"inkblog/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testBlogConfig() config.BlogConfig {
	return config.BlogConfig{
		PerPage:          5,
		RankingSize:      5,
		RankingWindow:    30 * 24 * time.Hour,
		FlagThreshold:    1,
		CommentMaxLength: 3000,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	gdb, err := db.Open(config.DBConfig{Driver: config.DriverSQLite, DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name, email, role string) *models.User {
	t.Helper()
	if role == "" {
		role = models.RoleUser
	}
	u := &models.User{Username: name, Email: email, Password: "x", Role: role}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func createArticle(t *testing.T, gdb *gorm.DB, author *models.User, slug string, status models.ArticleStatus, publish time.Time) *models.Article {
	t.Helper()
	a := &models.Article{
		Title:       "Title " + slug,
		Slug:        slug,
		Description: "Body of " + slug,
		Publish:     publish,
		Status:      status,
	}
	if author != nil {
		a.AuthorID = &author.ID
	}
	require.NoError(t, gdb.Create(a).Error)
	return a
}

func createComment(t *testing.T, gdb *gorm.DB, article *models.Article, user *models.User, parent *models.Comment, posted time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		ContentType: ArticleContentType,
		ObjectID:    article.ID,
		Content:     "comment by " + user.Username,
		UserID:      user.ID,
		Posted:      posted,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func (m *fakeMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

func newRegistry(gdb *gorm.DB) *TargetRegistry {
	r := NewTargetRegistry()
	r.Register(ArticleContentType, ArticleResolver(gdb))
	return r
}

type fixtureDB struct {
	DB *gorm.DB
}

func (f *fixtureDB) user(t *testing.T, name, email, role string) *models.User {
	return createUser(t, f.DB, name, email, role)
}
