package services

import (
	"context"
	"errors"
	"fmt"

	"inkblog/internal/metrics"
	"inkblog/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionCounts is returned to the client after every reaction change.
type ReactionCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ReactionService 评论点赞/点踩
type ReactionService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewReactionService(gdb *gorm.DB, log zerolog.Logger) *ReactionService {
	return &ReactionService{db: gdb, log: log.With().Str("component", "reactions").Logger()}
}

// CurrentReaction returns the user's reaction to the comment, or ReactionNone.
func (s *ReactionService) CurrentReaction(ctx context.Context, commentID uint, user *models.User) (models.ReactionType, error) {
	if user == nil {
		return models.ReactionNone, nil
	}
	var inst models.ReactionInstance
	err := s.db.WithContext(ctx).
		Joins("JOIN reactions ON reactions.id = reaction_instances.reaction_id").
		Where("reactions.comment_id = ? AND reaction_instances.user_id = ?", commentID, user.ID).
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ReactionNone, nil
	}
	if err != nil {
		return models.ReactionNone, fmt.Errorf("services.CurrentReaction: %w", err)
	}
	return inst.ReactionType, nil
}

// SetReaction records the user's reaction, replacing any previous one.
func (s *ReactionService) SetReaction(ctx context.Context, commentID uint, user *models.User, t models.ReactionType) (ReactionCounts, error) {
	const op = "services.SetReaction"

	if user == nil {
		return ReactionCounts{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if t != models.ReactionLike && t != models.ReactionDislike {
		return ReactionCounts{}, fmt.Errorf("%s: %w: unknown reaction type", op, ErrBadRequest)
	}

	var counts ReactionCounts
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reaction, err := ensureReaction(tx, commentID)
		if err != nil {
			return err
		}

		inst := models.ReactionInstance{ReactionID: reaction.ID, UserID: user.ID, ReactionType: t}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reaction_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reaction_type", "date_reacted"}),
		}).Create(&inst).Error
		if err != nil {
			return err
		}

		counts, err = recountReactions(tx, reaction)
		return err
	})
	if err != nil {
		return ReactionCounts{}, notFound(op, err)
	}

	metrics.Reactions.WithLabelValues(t.String()).Inc()
	return counts, nil
}

// ClearReaction removes the user's reaction if any.
func (s *ReactionService) ClearReaction(ctx context.Context, commentID uint, user *models.User) (ReactionCounts, error) {
	const op = "services.ClearReaction"

	if user == nil {
		return ReactionCounts{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	var counts ReactionCounts
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reaction, err := ensureReaction(tx, commentID)
		if err != nil {
			return err
		}
		if err := tx.Where("reaction_id = ? AND user_id = ?", reaction.ID, user.ID).
			Delete(&models.ReactionInstance{}).Error; err != nil {
			return err
		}
		counts, err = recountReactions(tx, reaction)
		return err
	})
	if err != nil {
		return ReactionCounts{}, notFound(op, err)
	}

	metrics.Reactions.WithLabelValues(models.ReactionNone.String()).Inc()
	return counts, nil
}

// ReactionAudit lists every comment that has reactions, with each user's
// vote, newest first. Read only.
func (s *ReactionService) ReactionAudit(ctx context.Context) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := s.db.WithContext(ctx).
		Preload("Comment.User").
		Preload("Instances", func(db *gorm.DB) *gorm.DB { return db.Order("date_reacted ASC, id ASC") }).
		Preload("Instances.User").
		Where("likes + dislikes > 0").
		Order("id DESC").
		Find(&reactions).Error
	if err != nil {
		return nil, fmt.Errorf("services.ReactionAudit: %w", err)
	}
	return reactions, nil
}

// ensureReaction returns the comment's Reaction row, creating it on first use.
func ensureReaction(tx *gorm.DB, commentID uint) (*models.Reaction, error) {
	if err := tx.Select("id").First(&models.Comment{}, commentID).Error; err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Reaction{CommentID: commentID}).Error; err != nil {
		return nil, err
	}
	var r models.Reaction
	if err := tx.Where("comment_id = ?", commentID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func recountReactions(tx *gorm.DB, r *models.Reaction) (ReactionCounts, error) {
	var rows []struct {
		ReactionType models.ReactionType
		N            int
	}
	err := tx.Model(&models.ReactionInstance{}).
		Select("reaction_type, COUNT(*) AS n").
		Where("reaction_id = ?", r.ID).
		Group("reaction_type").
		Scan(&rows).Error
	if err != nil {
		return ReactionCounts{}, err
	}

	var counts ReactionCounts
	for _, row := range rows {
		switch row.ReactionType {
		case models.ReactionLike:
			counts.Likes = row.N
		case models.ReactionDislike:
			counts.Dislikes = row.N
		}
	}

	err = tx.Model(r).Updates(map[string]interface{}{
		"likes":    counts.Likes,
		"dislikes": counts.Dislikes,
	}).Error
	return counts, err
}
