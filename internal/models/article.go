package models

import (
	"time"
)

type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "d"
	StatusPublished ArticleStatus = "p"
	StatusInReview  ArticleStatus = "i"
	StatusReturned  ArticleStatus = "b"
)

// Label 返回状态的展示名称
func (s ArticleStatus) Label() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPublished:
		return "published"
	case StatusInReview:
		return "in review"
	case StatusReturned:
		return "returned"
	}
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusInReview, StatusReturned:
		return true
	}
	return false
}

type Article struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	AuthorID    *uint         `gorm:"index" json:"author_id"`
	Author      *User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"author,omitempty"`
	Title       string        `gorm:"size:200;not null" json:"title"`
	Slug        string        `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Categories  []Category    `gorm:"many2many:article_categories;" json:"categories,omitempty"`
	Description string        `gorm:"type:text;not null" json:"description"` // markdown body
	Thumbnail   string        `gorm:"size:255" json:"thumbnail"`
	Publish     time.Time     `gorm:"not null;index" json:"publish"`
	IsSpecial   bool          `gorm:"default:false;not null" json:"is_special"`
	Status      ArticleStatus `gorm:"type:varchar(1);not null;index" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsPublished reports whether readers may see the article.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}
