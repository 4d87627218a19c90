package handlers

import (
	"net/http"
	"strings"

	"inkblog/internal/middleware"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/utils"

	"github.com/gin-gonic/gin"
)

// CommentHandler serves the AJAX comment endpoints.
type CommentHandler struct {
	site      *Site
	comments  *services.CommentService
	reactions *services.ReactionService
	flags     *services.FlagService
}

func NewCommentHandler(site *Site, comments *services.CommentService, reactions *services.ReactionService, flags *services.FlagService) *CommentHandler {
	return &CommentHandler{site: site, comments: comments, reactions: reactions, flags: flags}
}

// commentID 解析路径中的评论 ID，失败时直接返回 404
func (h *CommentHandler) commentID(c *gin.Context) (uint, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		h.site.Fail(c, services.ErrNotFound)
	}
	return id, ok
}

// Create 发表评论或回复，返回渲染好的评论片段
func (h *CommentHandler) Create(c *gin.Context) {
	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	// 空的 parent_id 绑定为 0
	if form.ParentID != nil && *form.ParentID == 0 {
		form.ParentID = nil
	}

	user := middleware.CurrentUser(c)
	res, err := h.comments.Create(c.Request.Context(), services.CreateCommentInput{
		App:      strings.TrimSpace(form.App),
		Model:    strings.TrimSpace(form.Model),
		ObjectID: form.ObjectID,
		Content:  form.Content,
		ParentID: form.ParentID,
	}, user)
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	c.HTML(http.StatusOK, string(res.Fragment), gin.H{
		"Item":        h.comments.Item(res.Comment, user),
		"CurrentUser": user,
		"Target": gin.H{
			"App":      form.App,
			"Model":    form.Model,
			"ObjectID": res.Target.ObjectID(),
		},
	})
}

// loadOwned loads the comment and checks the permission for the action.
func (h *CommentHandler) loadOwned(c *gin.Context, allowed func(*models.Comment, *models.User) bool) *models.Comment {
	id, ok := h.commentID(c)
	if !ok {
		return nil
	}
	comment, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		h.site.Fail(c, err)
		return nil
	}
	if !allowed(comment, middleware.CurrentUser(c)) {
		h.site.Fail(c, services.ErrPermissionDenied)
		return nil
	}
	return comment
}

func (h *CommentHandler) htmlForm(c *gin.Context, name string, data gin.H) {
	html, err := h.site.Views.String(name, data)
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"html_form": html})
}

// EditForm 返回编辑弹窗
func (h *CommentHandler) EditForm(c *gin.Context) {
	comment := h.loadOwned(c, h.comments.CanEdit)
	if comment == nil {
		return
	}
	h.htmlForm(c, "comment/edit.html", gin.H{"Comment": comment})
}

func (h *CommentHandler) Edit(c *gin.Context) {
	id, ok := h.commentID(c)
	if !ok {
		return
	}
	comment, err := h.comments.Update(c.Request.Context(), id, c.PostForm("content"), middleware.CurrentUser(c))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     comment.ID,
		"html":   utils.RenderComment(comment.Content),
		"edited": comment.Edited,
	})
}

// DeleteForm 返回删除确认弹窗
func (h *CommentHandler) DeleteForm(c *gin.Context) {
	comment := h.loadOwned(c, h.comments.CanDelete)
	if comment == nil {
		return
	}
	replies, err := h.comments.ReplyCount(c.Request.Context(), comment.ID)
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	h.htmlForm(c, "comment/delete.html", gin.H{"Comment": comment, "HasReplies": replies > 0})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := h.commentID(c)
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		h.site.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}
