package handlers

import (
	"net/http"

	"inkblog/internal/middleware"
	"inkblog/internal/models"
	"inkblog/internal/services"

	"github.com/gin-gonic/gin"
)

// React toggles a like or dislike: reacting again with the same type clears it.
func (h *CommentHandler) React(c *gin.Context) {
	id, ok := h.commentID(c)
	if !ok {
		return
	}
	t, ok := models.ParseReactionType(c.Param("type"))
	if !ok {
		h.site.Fail(c, services.ErrBadRequest)
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	current, err := h.reactions.CurrentReaction(ctx, id, user)
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	var counts services.ReactionCounts
	if current == t {
		counts, err = h.reactions.ClearReaction(ctx, id, user)
		t = models.ReactionNone
	} else {
		counts, err = h.reactions.SetReaction(ctx, id, user, t)
	}
	if err != nil {
		h.site.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likes":    counts.Likes,
		"dislikes": counts.Dislikes,
		"reaction": t.String(),
	})
}
