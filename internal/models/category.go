package models

import (
	"time"
)

type Category struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ParentID  *uint      `gorm:"index" json:"parent_id"`
	Parent    *Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"parent,omitempty"`
	Children  []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	Slug      string     `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Status    bool       `gorm:"default:true;not null" json:"status"` // shown to readers
	Position  int        `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
