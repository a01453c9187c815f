package models

import "time"

// Forum is a discussion container. TopicCount, PostCount and the LastPost
// snapshot are derived values maintained incrementally by the post store;
// the persistent row is the only authoritative copy and the reconciler can
// rebuild them from active posts at any time.
type Forum struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	CategoryID      uint   `gorm:"index;not null" json:"category_id"`
	CreatedByID     uint   `gorm:"index;not null" json:"created_by_id"`
	Name            string `gorm:"size:100;not null;index" json:"name"`
	Description     string `gorm:"size:500" json:"description"`
	Rules           string `gorm:"type:text" json:"rules"`
	IsActive        bool   `gorm:"default:true;index" json:"is_active"`
	IsPinned        bool   `gorm:"default:false" json:"is_pinned"`
	IsLocked        bool   `gorm:"default:false" json:"is_locked"`
	RequireApproval bool   `gorm:"default:false" json:"require_approval"`
	TopicCount      int    `gorm:"default:0" json:"topic_count"`
	PostCount       int    `gorm:"default:0" json:"post_count"`

	// LastPost snapshot, denormalized for listings. Not a source of truth.
	LastPostID         *uint      `json:"last_post_id"`
	LastPostAuthorID   *uint      `json:"last_post_author_id"`
	LastPostAuthorName string     `gorm:"size:64" json:"last_post_author_name"`
	LastPostTitle      string     `gorm:"size:200" json:"last_post_title"`
	LastPostAt         *time.Time `json:"last_post_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Moderators []User `gorm:"many2many:forum_moderators;" json:"moderators,omitempty"`
}
