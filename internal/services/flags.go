package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inkblog/internal/config"
	"inkblog/internal/metrics"
	"inkblog/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlagService 评论举报与审核
type FlagService struct {
	db    *gorm.DB
	cfg   config.BlogConfig
	authz Authorizer
	log   zerolog.Logger
}

func NewFlagService(gdb *gorm.DB, cfg config.BlogConfig, authz Authorizer, log zerolog.Logger) *FlagService {
	return &FlagService{
		db:    gdb,
		cfg:   cfg,
		authz: authz,
		log:   log.With().Str("component", "flags").Logger(),
	}
}

// RaiseFlag records the user's flag on a comment. Re-flagging updates the
// reason. Once the count reaches the threshold an unflagged comment becomes
// flagged.
func (s *FlagService) RaiseFlag(ctx context.Context, commentID uint, user *models.User, reason models.FlagReason, info string) (*models.Flag, error) {
	const op = "services.RaiseFlag"

	if user == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidReason)
	}
	info = strings.TrimSpace(info)
	if reason == models.ReasonSomethingElse {
		if info == "" {
			return nil, fmt.Errorf("%s: %w: please describe the problem", op, ErrInvalidReason)
		}
	} else {
		info = ""
	}

	var flag *models.Flag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "user_id").First(&comment, commentID).Error; err != nil {
			return err
		}
		if comment.UserID == user.ID {
			return fmt.Errorf("%w: you cannot flag your own comment", ErrBadRequest)
		}

		f, err := ensureFlag(tx, commentID)
		if err != nil {
			return err
		}

		inst := models.FlagInstance{FlagID: f.ID, UserID: user.ID, Reason: reason, Info: info}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "flag_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "info", "date_flagged"}),
		}).Create(&inst).Error
		if err != nil {
			return err
		}

		if err := s.syncState(tx, f); err != nil {
			return err
		}
		flag = f
		return nil
	})
	if err != nil {
		return nil, notFound(op, err)
	}

	metrics.Flags.WithLabelValues("raised").Inc()
	s.log.Info().Uint("comment_id", commentID).Uint("user_id", user.ID).Str("reason", reason.String()).
		Str("state", flag.State.String()).Msg("Comment flagged")
	return flag, nil
}

// RemoveFlag withdraws the user's own flag.
func (s *FlagService) RemoveFlag(ctx context.Context, commentID uint, user *models.User) (*models.Flag, error) {
	const op = "services.RemoveFlag"

	if user == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	var flag models.Flag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", commentID).First(&flag).Error; err != nil {
			return err
		}
		res := tx.Where("flag_id = ? AND user_id = ?", flag.ID, user.ID).Delete(&models.FlagInstance{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return s.syncState(tx, &flag)
	})
	if err != nil {
		return nil, notFound(op, err)
	}

	metrics.Flags.WithLabelValues("removed").Inc()
	return &flag, nil
}

// ResolveFlag closes a flagged comment's case as rejected or resolved.
func (s *FlagService) ResolveFlag(ctx context.Context, commentID uint, moderator *models.User, outcome models.FlagState) (*models.Flag, error) {
	const op = "services.ResolveFlag"

	if moderator == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if !s.authz.IsModerator(moderator) {
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}
	if outcome != models.FlagRejected && outcome != models.FlagResolved {
		return nil, fmt.Errorf("%s: %w: unknown outcome", op, ErrBadRequest)
	}

	var flag models.Flag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("comment_id = ?", commentID).First(&flag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Select("id").First(&models.Comment{}, commentID).Error; err != nil {
				return err
			}
			return ErrNotFlagged
		}
		if err != nil {
			return err
		}
		if flag.State == models.FlagUnflagged {
			return ErrNotFlagged
		}

		flag.State = outcome
		flag.ModeratorID = &moderator.ID
		if err := tx.Model(&flag).Updates(map[string]interface{}{
			"state":        flag.State,
			"moderator_id": moderator.ID,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id = ?", commentID).Update("is_flagged", false).Error
	})
	if err != nil {
		return nil, notFound(op, err)
	}

	metrics.Flags.WithLabelValues(outcome.String()).Inc()
	s.log.Info().Uint("comment_id", commentID).Uint("moderator_id", moderator.ID).Str("state", outcome.String()).Msg("Flag resolved")
	return &flag, nil
}

// FlaggedComments is the moderation queue: comments currently flagged, with
// every flag instance for audit.
func (s *FlagService) FlaggedComments(ctx context.Context) ([]models.Flag, error) {
	var flags []models.Flag
	err := s.db.WithContext(ctx).
		Preload("Comment.User").
		Preload("Instances", func(db *gorm.DB) *gorm.DB { return db.Order("date_flagged ASC") }).
		Preload("Instances.User").
		Where("state = ?", models.FlagFlagged).
		Order("count DESC, id ASC").
		Find(&flags).Error
	if err != nil {
		return nil, fmt.Errorf("services.FlaggedComments: %w", err)
	}
	return flags, nil
}

func ensureFlag(tx *gorm.DB, commentID uint) (*models.Flag, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Flag{CommentID: commentID, State: models.FlagUnflagged}).Error; err != nil {
		return nil, err
	}
	var f models.Flag
	if err := tx.Where("comment_id = ?", commentID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// syncState recounts instances and moves between unflagged and flagged.
// Moderated states are left alone. comment.is_flagged mirrors state == flagged.
func (s *FlagService) syncState(tx *gorm.DB, f *models.Flag) error {
	var n int64
	if err := tx.Model(&models.FlagInstance{}).Where("flag_id = ?", f.ID).Count(&n).Error; err != nil {
		return err
	}
	f.Count = int(n)

	switch {
	case f.State == models.FlagUnflagged && f.Count >= s.cfg.FlagThreshold:
		f.State = models.FlagFlagged
	case f.State == models.FlagFlagged && f.Count < s.cfg.FlagThreshold:
		f.State = models.FlagUnflagged
	}

	if err := tx.Model(f).Updates(map[string]interface{}{
		"count": f.Count,
		"state": f.State,
	}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Comment{}).Where("id = ?", f.CommentID).
		Update("is_flagged", f.State == models.FlagFlagged).Error
}
