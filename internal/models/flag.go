package models

import (
	"time"
)

type FlagState int

const (
	FlagUnflagged FlagState = 1
	FlagFlagged   FlagState = 2
	FlagRejected  FlagState = 3
	FlagResolved  FlagState = 4
)

func (s FlagState) String() string {
	switch s {
	case FlagUnflagged:
		return "unflagged"
	case FlagFlagged:
		return "flagged"
	case FlagRejected:
		return "rejected"
	case FlagResolved:
		return "resolved"
	}
	return "unknown"
}

type FlagReason int

const (
	ReasonSpam          FlagReason = 1
	ReasonAbusive       FlagReason = 2
	ReasonSomethingElse FlagReason = 100
)

func (r FlagReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonAbusive, ReasonSomethingElse:
		return true
	}
	return false
}

func (r FlagReason) String() string {
	switch r {
	case ReasonSpam:
		return "spam"
	case ReasonAbusive:
		return "abusive"
	case ReasonSomethingElse:
		return "something else"
	}
	return "unknown"
}

// Flag 评论的举报状态
type Flag struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CommentID   uint           `gorm:"not null;uniqueIndex" json:"comment_id"`
	Comment     Comment        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comment"`
	ModeratorID *uint          `gorm:"index" json:"moderator_id"`
	Moderator   *User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"moderator,omitempty"`
	State       FlagState      `gorm:"not null;default:1" json:"state"`
	Count       int            `gorm:"not null;default:0" json:"count"`
	Instances   []FlagInstance `gorm:"foreignKey:FlagID" json:"instances,omitempty"`
}

// FlagInstance 一个用户对一条评论的举报
type FlagInstance struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FlagID      uint       `gorm:"not null;uniqueIndex:idx_flag_user" json:"flag_id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_flag_user;index" json:"user_id"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Reason      FlagReason `gorm:"not null" json:"reason"`
	Info        string     `gorm:"type:text" json:"info"`
	DateFlagged time.Time  `gorm:"autoUpdateTime" json:"date_flagged"`
}
