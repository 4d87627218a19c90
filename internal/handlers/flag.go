package handlers

import (
	"net/http"

	"inkblog/internal/middleware"
	"inkblog/internal/models"

	"github.com/gin-gonic/gin"
)

func flagJSON(f *models.Flag) gin.H {
	return gin.H{
		"state":   f.State.String(),
		"count":   f.Count,
		"flagged": f.State == models.FlagFlagged,
	}
}

// Flag 举报评论
func (h *CommentHandler) Flag(c *gin.Context) {
	id, ok := h.commentID(c)
	if !ok {
		return
	}
	var form flagForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}

	flag, err := h.flags.RaiseFlag(c.Request.Context(), id, middleware.CurrentUser(c), models.FlagReason(form.Reason), form.Info)
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flagJSON(flag))
}

// Unflag 撤回自己的举报
func (h *CommentHandler) Unflag(c *gin.Context) {
	id, ok := h.commentID(c)
	if !ok {
		return
	}
	flag, err := h.flags.RemoveFlag(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flagJSON(flag))
}

// ResolveFlag 版主处理举报：驳回或确认
func (h *CommentHandler) ResolveFlag(c *gin.Context) {
	id, ok := h.commentID(c)
	if !ok {
		return
	}
	var form resolveForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}

	flag, err := h.flags.ResolveFlag(c.Request.Context(), id, middleware.CurrentUser(c), models.FlagState(form.State))
	if err != nil {
		h.site.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flagJSON(flag))
}
