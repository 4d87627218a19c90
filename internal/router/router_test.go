package router

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"inkblog/internal/config"
	"inkblog/internal/db"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

// fixedCaptcha always asks the same question.
type fixedCaptcha struct{}

func (fixedCaptcha) NewChallenge() (string, int) { return "1 + 1", 2 }

type testApp struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	users    *services.UserService
	mailer   *fakeMailer
	notifier *services.Notifier
}

func newTestApp(t *testing.T, opts ...func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "app.db") + "?_foreign_keys=on&_busy_timeout=5000"
	gdb, err := db.Open(config.DBConfig{Driver: config.DriverSQLite, DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := &config.Config{
		Env:     config.EnvLocal,
		Session: config.SessionConfig{Secret: "test-secret-0123456789", Name: "inkblog_test"},
		Site:    config.SiteConfig{Name: "Inkblog", URL: "http://blog.test/"},
		Blog: config.BlogConfig{
			PerPage:          5,
			RankingSize:      5,
			RankingWindow:    30 * 24 * time.Hour,
			FlagThreshold:    1,
			CommentMaxLength: 3000,
		},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	tmpl, err := views.Load("../../web/templates")
	require.NoError(t, err)

	log := zerolog.Nop()
	authz := services.RoleAuthorizer{}
	mailer := &fakeMailer{}
	notifier, err := services.NewNotifier(mailer, cfg.Site, log)
	require.NoError(t, err)
	targets := services.NewTargetRegistry()
	targets.Register(services.ArticleContentType, services.ArticleResolver(gdb))
	users := services.NewUserService(gdb)

	engine := New(Deps{
		DB:        gdb,
		Config:    cfg,
		Log:       log,
		Views:     tmpl,
		Blog:      services.NewBlogService(gdb, cfg.Blog, authz, log),
		Ranking:   services.NewRankingService(gdb, cfg.Blog, log),
		Comments:  services.NewCommentService(gdb, cfg.Blog, authz, targets, notifier, log),
		Reactions: services.NewReactionService(gdb, log),
		Flags:     services.NewFlagService(gdb, cfg.Blog, authz, log),
		Users:     users,
		Authz:     authz,
		Captcha:   fixedCaptcha{},
	})

	t.Cleanup(func() {
		notifier.Wait()
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testApp{t: t, db: gdb, engine: engine, users: users, mailer: mailer, notifier: notifier}
}

// client carries one browser's cookies between requests.
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) anon() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

// register creates a user with the given role and logs them in.
func (a *testApp) register(username, role string) (*client, *models.User) {
	a.t.Helper()
	user, err := a.users.Register(context.Background(), username, username+"@example.com", "secret1")
	require.NoError(a.t, err)
	if role != models.RoleUser {
		require.NoError(a.t, a.users.SetRole(context.Background(), username, role))
		user.Role = role
	}

	c := a.anon()
	w := c.post("/login", url.Values{"username": {username}, "password": {"secret1"}}, false)
	require.Equal(a.t, http.StatusFound, w.Code)
	return c, user
}

func (c *client) do(method, path string, form url.Values, ajax bool) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if ajax {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.app.engine.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(path string, ajax bool) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil, ajax)
}

func (c *client) post(path string, form url.Values, ajax bool) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return c.do(http.MethodPost, path, form, ajax)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testApp) article(author *models.User, slug string, status models.ArticleStatus) *models.Article {
	a.t.Helper()
	art := &models.Article{
		Title:       "Title " + slug,
		Slug:        slug,
		Description: "Body of **" + slug + "**",
		Publish:     time.Now().Add(-time.Hour),
		Status:      status,
	}
	if author != nil {
		art.AuthorID = &author.ID
	}
	require.NoError(a.t, a.db.Create(art).Error)
	return art
}

func commentForm(article *models.Article, content string, parentID uint) url.Values {
	form := url.Values{
		"app_name":   {"blog"},
		"model_name": {"article"},
		"model_id":   {idStr(article.ID)},
		"content":    {content},
	}
	if parentID != 0 {
		form.Set("parent_id", idStr(parentID))
	}
	return form
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	pub := app.article(nil, "hello", models.StatusPublished)
	app.article(nil, "secret", models.StatusDraft)

	visitor := app.anon()

	w := visitor.get("/", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Title hello")
	assert.NotContains(t, w.Body.String(), "Title secret")

	w = visitor.get("/article/"+pub.Slug, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>hello</strong>")
	assert.Contains(t, w.Body.String(), "1 views")

	// same address again does not count
	w = visitor.get("/article/"+pub.Slug, false)
	assert.Contains(t, w.Body.String(), "1 views")
	assert.NotContains(t, w.Body.String(), "2 views")

	assert.Equal(t, http.StatusNotFound, visitor.get("/article/secret", false).Code)
	assert.Equal(t, http.StatusNotFound, visitor.get("/category/nope", false).Code)

	w = visitor.get("/search?q=HELLO", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Title hello")

	w = visitor.get("/sitemap.xml", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>http://blog.test/article/hello</loc>")
	assert.NotContains(t, w.Body.String(), "secret")

	w = visitor.get("/robots.txt", false)
	assert.Contains(t, w.Body.String(), "Sitemap: http://blog.test/sitemap.xml")

	w = visitor.get("/feed.xml", false)
	require.Equal(t, http.StatusOK, w.Code)
	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "rss", feed.FeedType)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Title hello", feed.Items[0].Title)
	assert.Equal(t, "http://blog.test/article/hello", feed.Items[0].Link)
	assert.Contains(t, feed.Items[0].Description, "Body of hello")
	assert.NotNil(t, feed.Items[0].PublishedParsed)

	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	gz := httptest.NewRecorder()
	app.engine.ServeHTTP(gz, req)
	assert.Equal(t, "gzip", gz.Header().Get("Content-Encoding"))

	assert.Equal(t, http.StatusOK, visitor.get("/healthz", false).Code)
	assert.Equal(t, http.StatusOK, visitor.get("/metrics", false).Code)
}

// visit requests the article from remoteAddr with the given X-Forwarded-For.
func (a *testApp) visit(slug, remoteAddr, forwardedFor string) {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/article/"+slug, nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(a.t, http.StatusOK, w.Code)
}

func (a *testApp) hitIPs(article *models.Article) []string {
	a.t.Helper()
	var ips []string
	require.NoError(a.t, a.db.Table("article_hits").
		Joins("JOIN ip_addresses ON ip_addresses.id = article_hits.ip_address_id").
		Where("article_hits.article_id = ?", article.ID).
		Order("ip_addresses.ip_address").
		Pluck("ip_addresses.ip_address", &ips).Error)
	return ips
}

func TestHits_ForwardedForFromUntrustedPeerIsIgnored(t *testing.T) {
	app := newTestApp(t)
	art := app.article(nil, "hello", models.StatusPublished)

	for i := 1; i <= 5; i++ {
		app.visit(art.Slug, "198.51.100.7:4000", fmt.Sprintf("203.0.113.%d", i))
	}
	assert.Equal(t, []string{"198.51.100.7"}, app.hitIPs(art))
}

func TestHits_ForwardedForFromTrustedProxy(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.HTTP.TrustedProxies = []string{"10.0.0.1"}
	})
	art := app.article(nil, "hello", models.StatusPublished)

	app.visit(art.Slug, "10.0.0.1:4000", "203.0.113.1")
	app.visit(art.Slug, "10.0.0.1:4001", "203.0.113.2")
	app.visit(art.Slug, "10.0.0.1:4002", "203.0.113.2")
	assert.Equal(t, []string{"203.0.113.1", "203.0.113.2"}, app.hitIPs(art))
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	_, err := app.users.Register(context.Background(), "alice", "", "secret1")
	require.NoError(t, err)

	c := app.anon()
	w := c.post("/login", url.Values{"username": {"alice"}, "password": {"wrong!"}}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password.")

	w = c.post("/login", url.Values{"username": {"alice"}, "password": {"secret1"}, "next": {"//evil.example"}}, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = c.get("/", false)
	assert.Contains(t, w.Body.String(), "Log out")

	signup := app.anon()
	w = signup.get("/signup", false)
	require.Equal(t, http.StatusOK, w.Code)
	// html/template 会把 + 转义成 &#43;
	assert.Contains(t, html.UnescapeString(w.Body.String()), "1 + 1 = ?")

	w = signup.post("/signup", url.Values{"username": {"bob"}, "password": {"secret1"}, "captcha": {"3"}}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Wrong answer to the math question.")

	w = signup.post("/signup", url.Values{"username": {"alice"}, "password": {"secret1"}, "captcha": {"2"}}, false)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 答案只能用一次，每次渲染都会重新下发
	w = signup.post("/signup", url.Values{"username": {"bob"}, "password": {"secret1"}, "captcha": {"2"}}, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	w = signup.get("/", false)
	assert.Contains(t, w.Body.String(), "Log out")

	w = app.anon().post("/signup", url.Values{"username": {"carol"}, "password": {"secret1"}, "captcha": {"2"}}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code, "captcha needs a prior challenge")
}

func TestPreview(t *testing.T) {
	app := newTestApp(t)
	alice, aliceUser := app.register("alice", models.RoleUser)
	bob, _ := app.register("bob", models.RoleUser)
	admin, _ := app.register("root", models.RoleAdmin)
	draft := app.article(aliceUser, "wip", models.StatusDraft)
	path := "/preview/" + idStr(draft.ID)

	w := app.anon().get(path, false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login?next=")

	w = alice.get(path, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Preview")

	assert.Equal(t, http.StatusForbidden, bob.get(path, false).Code)
	assert.Equal(t, http.StatusOK, admin.get(path, false).Code)
	assert.Equal(t, http.StatusNotFound, admin.get("/preview/999", false).Code)
}

func TestCommentEndpoints_Guards(t *testing.T) {
	app := newTestApp(t)
	art := app.article(nil, "hello", models.StatusPublished)
	alice, _ := app.register("alice", models.RoleUser)

	w := app.anon().post("/comment/create", commentForm(art, "hi", 0), true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = alice.post("/comment/create", commentForm(art, "hi", 0), false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "only ajax requests are allowed", decode(t, w)["error"])
}

func TestCommentCreate(t *testing.T) {
	app := newTestApp(t)
	_, author := app.register("author", models.RoleUser)
	art := app.article(author, "hello", models.StatusPublished)
	bob, _ := app.register("bob", models.RoleUser)

	w := bob.post("/comment/create", commentForm(art, "first **comment**", 0), true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="comment-1"`)
	assert.Contains(t, w.Body.String(), "<strong>comment</strong>")
	assert.Contains(t, w.Body.String(), `name="parent_id" value="1"`, "top-level fragment carries a reply form")

	w = bob.post("/comment/create", commentForm(art, "a reply", 1), true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="comment reply"`)

	w = bob.post("/comment/create", commentForm(art, "too deep", 2), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "replies may only target top-level comments", decode(t, w)["error"])

	w = bob.post("/comment/create", commentForm(art, "   ", 0), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "content is required", decode(t, w)["error"])

	form := commentForm(art, "hi", 0)
	form.Set("model_name", "widget")
	assert.Equal(t, http.StatusNotFound, bob.post("/comment/create", form, true).Code)

	form = commentForm(art, "hi", 0)
	form.Del("model_id")
	assert.Equal(t, http.StatusBadRequest, bob.post("/comment/create", form, true).Code)

	app.notifier.Wait()
	assert.NotEmpty(t, app.mailer.sent)

	w = app.anon().get("/article/hello", false)
	assert.Contains(t, w.Body.String(), "2 comment(s)")
}

func TestCommentEditAndDelete(t *testing.T) {
	app := newTestApp(t)
	art := app.article(nil, "hello", models.StatusPublished)
	bob, _ := app.register("bob", models.RoleUser)
	carol, _ := app.register("carol", models.RoleUser)

	require.Equal(t, http.StatusOK, bob.post("/comment/create", commentForm(art, "original", 0), true).Code)

	w := bob.get("/comment/1/edit", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["html_form"], "Edit comment")

	assert.Equal(t, http.StatusForbidden, carol.get("/comment/1/edit", true).Code)
	assert.Equal(t, http.StatusForbidden, carol.post("/comment/1/edit", url.Values{"content": {"hijack"}}, true).Code)

	w = bob.post("/comment/1/edit", url.Values{"content": {"changed _text_"}}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["html"], "<em>text</em>")

	assert.Equal(t, http.StatusForbidden, carol.get("/comment/1/delete", true).Code)

	w = bob.get("/comment/1/delete", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["html_form"], "Delete comment?")

	w = bob.post("/comment/1/delete", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["deleted"])
	assert.EqualValues(t, 1, body["id"])

	assert.Equal(t, http.StatusNotFound, bob.get("/comment/1/edit", true).Code)
	assert.Equal(t, http.StatusNotFound, bob.get("/comment/abc/edit", true).Code)
}

func TestReactToggle(t *testing.T) {
	app := newTestApp(t)
	art := app.article(nil, "hello", models.StatusPublished)
	bob, _ := app.register("bob", models.RoleUser)
	require.Equal(t, http.StatusOK, bob.post("/comment/create", commentForm(art, "x", 0), true).Code)

	w := bob.post("/comment/1/react/like", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["likes"])
	assert.Equal(t, "like", body["reaction"])

	body = decode(t, bob.post("/comment/1/react/dislike", nil, true))
	assert.EqualValues(t, 0, body["likes"])
	assert.EqualValues(t, 1, body["dislikes"])
	assert.Equal(t, "dislike", body["reaction"])

	body = decode(t, bob.post("/comment/1/react/dislike", nil, true))
	assert.EqualValues(t, 0, body["dislikes"])
	assert.Equal(t, "none", body["reaction"])

	assert.Equal(t, http.StatusBadRequest, bob.post("/comment/1/react/love", nil, true).Code)
	assert.Equal(t, http.StatusNotFound, bob.post("/comment/42/react/like", nil, true).Code)
}

func TestAdminReactionAudit(t *testing.T) {
	app := newTestApp(t)
	art := app.article(nil, "hello", models.StatusPublished)
	bob, _ := app.register("bob", models.RoleUser)
	carol, _ := app.register("carol", models.RoleUser)
	mod, _ := app.register("mod", models.RoleModerator)

	w := mod.get("/admin/reactions", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No reactions yet.")

	require.Equal(t, http.StatusOK, bob.post("/comment/create", commentForm(art, "nice post", 0), true).Code)
	require.Equal(t, http.StatusOK, bob.post("/comment/1/react/like", nil, true).Code)
	require.Equal(t, http.StatusOK, carol.post("/comment/1/react/dislike", nil, true).Code)

	w = mod.get("/admin/reactions", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="reaction-1"`)
	assert.Contains(t, body, "1 like(s)")
	assert.Contains(t, body, "1 dislike(s)")
	assert.Contains(t, body, "<td>bob</td><td>like</td>")
	assert.Contains(t, body, "<td>carol</td><td>dislike</td>")

	// 清除后不再出现
	require.Equal(t, http.StatusOK, bob.post("/comment/1/react/like", nil, true).Code)
	require.Equal(t, http.StatusOK, carol.post("/comment/1/react/dislike", nil, true).Code)
	assert.Contains(t, mod.get("/admin/reactions", false).Body.String(), "No reactions yet.")

	assert.Equal(t, http.StatusForbidden, bob.get("/admin/reactions", false).Code)
	assert.Equal(t, http.StatusFound, app.anon().get("/admin/reactions", false).Code)
}

func TestFlagFlow(t *testing.T) {
	app := newTestApp(t)
	art := app.article(nil, "hello", models.StatusPublished)
	bob, _ := app.register("bob", models.RoleUser)
	carol, _ := app.register("carol", models.RoleUser)
	mod, _ := app.register("mod", models.RoleModerator)
	require.Equal(t, http.StatusOK, bob.post("/comment/create", commentForm(art, "spam spam", 0), true).Code)

	w := bob.post("/comment/1/flag", url.Values{"reason": {"1"}}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code, "own comment")

	w = carol.post("/comment/1/flag", url.Values{"reason": {"100"}}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code, "something else needs details")

	w = carol.post("/comment/1/flag", url.Values{"reason": {"1"}}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"state": "flagged", "count": float64(1), "flagged": true}, decode(t, w))

	body := decode(t, carol.post("/comment/1/unflag", nil, true))
	assert.Equal(t, "unflagged", body["state"])

	w = mod.post("/comment/1/flag/resolve", url.Values{"state": {"4"}}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code, "not flagged any more")

	require.Equal(t, http.StatusOK, carol.post("/comment/1/flag", url.Values{"reason": {"2"}}, true).Code)

	assert.Equal(t, http.StatusForbidden, carol.post("/comment/1/flag/resolve", url.Values{"state": {"4"}}, true).Code)
	assert.Equal(t, http.StatusBadRequest, mod.post("/comment/1/flag/resolve", url.Values{"state": {"2"}}, true).Code)

	w = mod.get("/admin/flags", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spam spam")
	assert.Contains(t, w.Body.String(), "abusive")

	body = decode(t, mod.post("/comment/1/flag/resolve", url.Values{"state": {"4"}}, true))
	assert.Equal(t, "resolved", body["state"])
	assert.Equal(t, false, body["flagged"])

	w = mod.get("/admin/flags", false)
	assert.Contains(t, w.Body.String(), "Nothing to moderate.")
	assert.Equal(t, http.StatusForbidden, carol.get("/admin/flags", false).Code)
}

func TestAdminBulkStatus(t *testing.T) {
	app := newTestApp(t)
	a := app.article(nil, "a", models.StatusDraft)
	b := app.article(nil, "b", models.StatusDraft)
	admin, _ := app.register("root", models.RoleAdmin)
	bob, _ := app.register("bob", models.RoleUser)

	assert.Equal(t, http.StatusForbidden, bob.get("/admin/articles", false).Code)
	w := bob.post("/admin/articles/status", url.Values{"ids": {idStr(a.ID)}, "status": {"p"}}, false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = admin.get("/admin/articles", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Title a")

	w = admin.post("/admin/articles/status", url.Values{"ids": {idStr(a.ID), idStr(b.ID)}, "status": {"p"}}, false)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/articles", w.Header().Get("Location"))

	w = admin.get("/admin/articles", false)
	assert.Contains(t, w.Body.String(), "2 articles were published.")

	// flash shows once
	w = admin.get("/admin/articles", false)
	assert.NotContains(t, w.Body.String(), "articles were published")

	admin.post("/admin/articles/status", url.Values{"ids": {idStr(a.ID)}, "status": {"d"}}, false)
	w = admin.get("/admin/articles", false)
	assert.Contains(t, w.Body.String(), "1 article was marked as draft.")

	w = admin.post("/admin/articles/status", url.Values{"ids": {idStr(a.ID)}, "status": {"x"}}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
