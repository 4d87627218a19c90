package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"inkblog/internal/config"
	"inkblog/internal/metrics"
	"inkblog/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Fragment names the template that renders a newly created comment.
type Fragment string

const (
	FragmentParent Fragment = "comment/base.html"
	FragmentChild  Fragment = "comment/child.html"
)

// CreateCommentInput identifies the target by (app, model, object id).
type CreateCommentInput struct {
	App      string
	Model    string
	ObjectID uint
	Content  string
	ParentID *uint
}

func (in CreateCommentInput) ContentType() string {
	return in.App + "." + in.Model
}

type CreateResult struct {
	Comment  *models.Comment
	Target   Commentable
	Fragment Fragment
}

// ThreadComment is a comment prepared for display to one viewer.
type ThreadComment struct {
	Comment        models.Comment
	Likes          int
	Dislikes       int
	ViewerReaction models.ReactionType
	ViewerFlagged  bool
	CanEdit        bool
	CanDelete      bool
	Replies        []ThreadComment
}

type CommentService struct {
	db       *gorm.DB
	cfg      config.BlogConfig
	authz    Authorizer
	targets  *TargetRegistry
	notifier CommentNotifier
	log      zerolog.Logger
}

func NewCommentService(gdb *gorm.DB, cfg config.BlogConfig, authz Authorizer, targets *TargetRegistry, notifier CommentNotifier, log zerolog.Logger) *CommentService {
	return &CommentService{
		db:       gdb,
		cfg:      cfg,
		authz:    authz,
		targets:  targets,
		notifier: notifier,
		log:      log.With().Str("component", "comments").Logger(),
	}
}

func (s *CommentService) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", ErrInvalidContent)
	}
	if utf8.RuneCountInString(content) > s.cfg.CommentMaxLength {
		return "", fmt.Errorf("%w: content exceeds %d characters", ErrInvalidContent, s.cfg.CommentMaxLength)
	}
	return content, nil
}

// Create stores a comment on the target. A parent id that no longer exists is
// ignored and the comment becomes top-level.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput, author *models.User) (*CreateResult, error) {
	const op = "services.CommentCreate"

	if author == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	content, err := s.cleanContent(in.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	target, err := s.targets.Resolve(ctx, in.ContentType(), in.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comment := models.Comment{
		ContentType: target.ContentType(),
		ObjectID:    target.ObjectID(),
		Content:     content,
		UserID:      author.ID,
	}

	db := s.db.WithContext(ctx)

	var parent *models.Comment
	if in.ParentID != nil {
		var p models.Comment
		err := db.Preload("User").First(&p, *in.ParentID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.log.Warn().Uint("parent_id", *in.ParentID).Msg("Parent comment not found, creating top-level comment")
		case err != nil:
			return nil, fmt.Errorf("%s: %w", op, err)
		case !p.IsParent():
			return nil, fmt.Errorf("%s: %w", op, ErrMaxDepthExceeded)
		case p.ContentType != comment.ContentType || p.ObjectID != comment.ObjectID:
			return nil, fmt.Errorf("%s: %w: parent belongs to another target", op, ErrBadRequest)
		default:
			comment.ParentID = &p.ID
			parent = &p
		}
	}

	if err := db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	comment.User = *author

	fragment := FragmentParent
	kind := "parent"
	if parent != nil {
		fragment = FragmentChild
		kind = "child"
	}
	metrics.Comments.WithLabelValues(kind).Inc()
	s.log.Info().Uint("comment_id", comment.ID).Str("target", comment.ContentType).Uint("object_id", comment.ObjectID).Msg("Comment created")

	if s.notifier != nil {
		s.notifier.CommentCreated(ctx, CommentEvent{
			Comment:   &comment,
			Commenter: author,
			Target:    target,
			Parent:    parent,
		})
	}

	return &CreateResult{Comment: &comment, Target: target, Fragment: fragment}, nil
}

// Get loads a comment with its author.
func (s *CommentService) Get(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&c, id).Error; err != nil {
		return nil, notFound("services.CommentGet", err)
	}
	return &c, nil
}

// Update replaces the content of the requester's own comment.
func (s *CommentService) Update(ctx context.Context, id uint, content string, requester *models.User) (*models.Comment, error) {
	const op = "services.CommentUpdate"

	if requester == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.CanEdit(c, requester) {
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}
	content, err = s.cleanContent(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(c).Updates(map[string]interface{}{
		"content": content,
		"edited":  now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.Content = content
	c.Edited = &now
	return c, nil
}

func (s *CommentService) CanEdit(c *models.Comment, u *models.User) bool {
	return u != nil && c.UserID == u.ID
}

// CanDelete allows the author, any admin, and moderators once the comment is flagged.
func (s *CommentService) CanDelete(c *models.Comment, u *models.User) bool {
	if u == nil {
		return false
	}
	if c.UserID == u.ID || s.authz.IsAdmin(u) {
		return true
	}
	return c.IsFlagged && s.authz.IsModerator(u)
}

// Delete removes the comment, its direct replies and their reaction and flag rows.
func (s *CommentService) Delete(ctx context.Context, id uint, requester *models.User) error {
	const op = "services.CommentDelete"

	if requester == nil {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.CanDelete(c, requester) {
		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", c.ID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		ids = append(ids, c.ID)

		var reactionIDs []uint
		if err := tx.Model(&models.Reaction{}).Where("comment_id IN ?", ids).Pluck("id", &reactionIDs).Error; err != nil {
			return err
		}
		if len(reactionIDs) > 0 {
			if err := tx.Where("reaction_id IN ?", reactionIDs).Delete(&models.ReactionInstance{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", reactionIDs).Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
		}

		var flagIDs []uint
		if err := tx.Model(&models.Flag{}).Where("comment_id IN ?", ids).Pluck("id", &flagIDs).Error; err != nil {
			return err
		}
		if len(flagIDs) > 0 {
			if err := tx.Where("flag_id IN ?", flagIDs).Delete(&models.FlagInstance{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", flagIDs).Delete(&models.Flag{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("parent_id = ?", c.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, c.ID).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Uint("comment_id", c.ID).Uint("by", requester.ID).Msg("Comment deleted")
	return nil
}

// Count returns the number of comments on a target.
func (s *CommentService) Count(ctx context.Context, contentType string, objectID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("content_type = ? AND object_id = ?", contentType, objectID).
		Count(&n).Error
	return n, err
}

// ReplyCount returns the number of direct replies to a comment.
func (s *CommentService) ReplyCount(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

// Thread returns top-level comments oldest first, each with its replies.
// viewer may be nil.
func (s *CommentService) Thread(ctx context.Context, contentType string, objectID uint, viewer *models.User) ([]ThreadComment, error) {
	const op = "services.CommentThread"
	db := s.db.WithContext(ctx)

	var comments []models.Comment
	err := db.Preload("User").
		Where("content_type = ? AND object_id = ?", contentType, objectID).
		Order("posted ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(comments) == 0 {
		return []ThreadComment{}, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	var reactions []models.Reaction
	if err := db.Where("comment_id IN ?", ids).Find(&reactions).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	counts := make(map[uint]models.Reaction, len(reactions))
	for _, r := range reactions {
		counts[r.CommentID] = r
	}

	mine := map[uint]models.ReactionType{}
	flagged := map[uint]bool{}
	if viewer != nil {
		var rows []struct {
			CommentID    uint
			ReactionType models.ReactionType
		}
		err := db.Table("reaction_instances").
			Select("reactions.comment_id, reaction_instances.reaction_type").
			Joins("JOIN reactions ON reactions.id = reaction_instances.reaction_id").
			Where("reaction_instances.user_id = ? AND reactions.comment_id IN ?", viewer.ID, ids).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, r := range rows {
			mine[r.CommentID] = r.ReactionType
		}

		var flaggedIDs []uint
		err = db.Table("flag_instances").
			Joins("JOIN flags ON flags.id = flag_instances.flag_id").
			Where("flag_instances.user_id = ? AND flags.comment_id IN ?", viewer.ID, ids).
			Pluck("flags.comment_id", &flaggedIDs).Error
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, id := range flaggedIDs {
			flagged[id] = true
		}
	}

	item := func(c models.Comment) ThreadComment {
		r := counts[c.ID]
		return ThreadComment{
			Comment:        c,
			Likes:          r.Likes,
			Dislikes:       r.Dislikes,
			ViewerReaction: mine[c.ID],
			ViewerFlagged:  flagged[c.ID],
			CanEdit:        s.CanEdit(&c, viewer),
			CanDelete:      s.CanDelete(&c, viewer),
		}
	}

	var thread []ThreadComment
	index := map[uint]int{}
	for _, c := range comments {
		if c.IsParent() {
			index[c.ID] = len(thread)
			thread = append(thread, item(c))
		}
	}
	for _, c := range comments {
		if c.IsParent() {
			continue
		}
		// replies whose parent vanished are not shown
		if i, ok := index[*c.ParentID]; ok {
			thread[i].Replies = append(thread[i].Replies, item(c))
		}
	}
	return thread, nil
}

// Item prepares a single comment for display, as rendered right after creation.
func (s *CommentService) Item(c *models.Comment, viewer *models.User) ThreadComment {
	return ThreadComment{
		Comment:   *c,
		CanEdit:   s.CanEdit(c, viewer),
		CanDelete: s.CanDelete(c, viewer),
	}
}
