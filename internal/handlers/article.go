package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"inkblog/internal/middleware"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/utils"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	site     *Site
	comments *services.CommentService
}

func NewArticleHandler(site *Site, comments *services.CommentService) *ArticleHandler {
	return &ArticleHandler{site: site, comments: comments}
}

// commentTarget is the (app, model, id) triple posted by comment forms.
func commentTarget(a *models.Article) gin.H {
	app, model, _ := strings.Cut(services.ArticleContentType, ".")
	return gin.H{"App": app, "Model": model, "ObjectID": a.ID}
}

// Index 首页文章列表
func (h *ArticleHandler) Index(c *gin.Context) {
	page, err := h.site.Blog.ListPublished(c.Request.Context(), utils.ParsePage(c.Query("page")))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "article/list.html", gin.H{
		"Heading": "Latest articles",
		"Page":    page,
		"BaseURL": "/?",
	})
}

func (h *ArticleHandler) Category(c *gin.Context) {
	slug := c.Param("slug")
	cat, page, err := h.site.Blog.ListByCategory(c.Request.Context(), slug, utils.ParsePage(c.Query("page")))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "article/list.html", gin.H{
		"Title":   cat.Title,
		"Heading": cat.Title,
		"Page":    page,
		"BaseURL": "/category/" + url.PathEscape(cat.Slug) + "?",
	})
}

func (h *ArticleHandler) Author(c *gin.Context) {
	author, page, err := h.site.Blog.ListByAuthor(c.Request.Context(), c.Param("username"), utils.ParsePage(c.Query("page")))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "article/list.html", gin.H{
		"Title":   author.Username,
		"Heading": author.Username,
		"Author":  author,
		"Page":    page,
		"BaseURL": "/author/" + url.PathEscape(author.Username) + "?",
	})
}

func (h *ArticleHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	page, err := h.site.Blog.Search(c.Request.Context(), q, utils.ParsePage(c.Query("page")))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "article/list.html", gin.H{
		"Title":   "Search",
		"Heading": "Search",
		"Query":   q,
		"Page":    page,
		"BaseURL": "/search?q=" + url.QueryEscape(q) + "&",
	})
}

// Detail 文章详情，同一 IP 只计一次浏览
func (h *ArticleHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	article, err := h.site.Blog.ArticleBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	if _, err := h.site.Blog.RecordHit(ctx, article.ID, c.ClientIP()); err != nil {
		h.site.Log.Warn().Err(err).Uint("article_id", article.ID).Msg("Failed to record hit")
	}
	h.renderDetail(c, article, false)
}

// Preview 作者或管理员查看未发布的文章
func (h *ArticleHandler) Preview(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		h.site.Fail(c, services.ErrNotFound)
		return
	}
	article, err := h.site.Blog.ArticleForPreview(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.renderDetail(c, article, true)
}

func (h *ArticleHandler) renderDetail(c *gin.Context, article *models.Article, preview bool) {
	ctx := c.Request.Context()
	viewer := middleware.CurrentUser(c)

	hits, err := h.site.Blog.HitCount(ctx, article.ID)
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	data := gin.H{
		"Title":          article.Title,
		"Article":        article,
		"Preview":        preview,
		"CategoryLabels": services.JoinActiveTitles(article.Categories),
		"Hits":           hits,
		"Target":         commentTarget(article),
	}

	if !preview {
		thread, err := h.comments.Thread(ctx, services.ArticleContentType, article.ID, viewer)
		if err != nil {
			h.site.Fail(c, err)
			return
		}
		count, err := h.comments.Count(ctx, services.ArticleContentType, article.ID)
		if err != nil {
			h.site.Fail(c, err)
			return
		}
		data["Thread"] = thread
		data["CommentCount"] = count
	}

	h.site.Render(c, http.StatusOK, "article/detail.html", data)
}
