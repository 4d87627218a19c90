package models

import (
	"time"
)

// Comment attaches to any registered content type through (ContentType, ObjectID).
type Comment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ContentType string     `gorm:"size:100;not null;index:idx_comment_target" json:"content_type"` // "app.model"
	ObjectID    uint       `gorm:"not null;index:idx_comment_target" json:"object_id"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID    *uint      `gorm:"index" json:"parent_id"` // nil for top-level comments
	Parent      *Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Posted      time.Time  `gorm:"autoCreateTime;index" json:"posted"`
	Edited      *time.Time `json:"edited"`
	IsFlagged   bool       `gorm:"default:false;not null" json:"is_flagged"`
}

func (c *Comment) IsParent() bool {
	return c.ParentID == nil
}

func (c *Comment) IsEdited() bool {
	return c.Edited != nil
}
