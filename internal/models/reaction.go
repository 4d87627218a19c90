package models

import (
	"time"
)

type ReactionType int

const (
	ReactionNone    ReactionType = 0
	ReactionLike    ReactionType = 1
	ReactionDislike ReactionType = 2
)

// ParseReactionType maps the URL form ("like", "dislike") to a ReactionType.
func ParseReactionType(s string) (ReactionType, bool) {
	switch s {
	case "like":
		return ReactionLike, true
	case "dislike":
		return ReactionDislike, true
	}
	return ReactionNone, false
}

func (t ReactionType) String() string {
	switch t {
	case ReactionLike:
		return "like"
	case ReactionDislike:
		return "dislike"
	}
	return "none"
}

// Reaction 评论的点赞/点踩汇总，计数由实例行重新统计
type Reaction struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	CommentID uint               `gorm:"not null;uniqueIndex" json:"comment_id"`
	Comment   Comment            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comment"`
	Likes     int                `gorm:"not null;default:0" json:"likes"`
	Dislikes  int                `gorm:"not null;default:0" json:"dislikes"`
	Instances []ReactionInstance `gorm:"foreignKey:ReactionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"instances,omitempty"`
}

// ReactionInstance 一个用户对一条评论的投票
type ReactionInstance struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ReactionID   uint         `gorm:"not null;uniqueIndex:idx_reaction_user" json:"reaction_id"`
	UserID       uint         `gorm:"not null;uniqueIndex:idx_reaction_user;index" json:"user_id"`
	User         User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ReactionType ReactionType `gorm:"not null" json:"reaction_type"`
	DateReacted  time.Time    `gorm:"autoUpdateTime" json:"date_reacted"`
}
