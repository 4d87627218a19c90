package models

import (
	"time"
)

// IPAddress 访客 IP，按地址唯一
type IPAddress struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	IPAddress string `gorm:"uniqueIndex;size:45;not null" json:"ip_address"`
}

// ArticleHit 一次访问记录，(article, ip) 在存储层唯一
type ArticleHit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ArticleID   uint      `gorm:"not null;uniqueIndex:idx_article_ip" json:"article_id"`
	Article     Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	IPAddressID uint      `gorm:"not null;uniqueIndex:idx_article_ip" json:"ip_address_id"`
	IPAddress   IPAddress `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
