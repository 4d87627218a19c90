package handlers

import (
	"net/http"

	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	site      *Site
	flags     *services.FlagService
	reactions *services.ReactionService
}

func NewAdminHandler(site *Site, flags *services.FlagService, reactions *services.ReactionService) *AdminHandler {
	return &AdminHandler{site: site, flags: flags, reactions: reactions}
}

// Articles 后台文章列表
func (h *AdminHandler) Articles(c *gin.Context) {
	if h.site.checkAdmin(c) == nil {
		return
	}
	articles, err := h.site.Blog.AdminArticles(c.Request.Context())
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "admin/articles.html", gin.H{
		"Title":    "Articles",
		"Articles": articles,
	})
}

// UpdateStatus 批量发布或转为草稿
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	if h.site.checkAdmin(c) == nil {
		return
	}

	var form statusForm
	if err := c.ShouldBind(&form); err != nil {
		h.site.RenderError(c, http.StatusBadRequest, bindMessage(err))
		return
	}

	ids := make([]uint, 0, len(form.IDs))
	for _, raw := range form.IDs {
		if id, ok := utils.ParseID(raw); ok {
			ids = append(ids, id)
		}
	}

	status := models.ArticleStatus(form.Status)
	n, err := h.site.Blog.BulkSetStatus(c.Request.Context(), ids, status)
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	h.site.Flash(c, services.BulkStatusMessage(status, n))
	c.Redirect(http.StatusFound, "/admin/articles")
}

// Flags 待处理的举报
func (h *AdminHandler) Flags(c *gin.Context) {
	if h.site.requireModerator(c) == nil {
		return
	}
	flags, err := h.flags.FlaggedComments(c.Request.Context())
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "admin/flags.html", gin.H{
		"Title": "Flagged comments",
		"Flags": flags,
	})
}

// Reactions 点赞/点踩明细，只读
func (h *AdminHandler) Reactions(c *gin.Context) {
	if h.site.requireModerator(c) == nil {
		return
	}
	reactions, err := h.reactions.ReactionAudit(c.Request.Context())
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Render(c, http.StatusOK, "admin/reactions.html", gin.H{
		"Title":     "Comment reactions",
		"Reactions": reactions,
	})
}
