package models

import "time"

// PostEdit is one entry in a post's edit history: the content as it was
// before the edit, who changed it and why.
type PostEdit struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"index;not null" json:"post_id"`
	EditorID        uint      `gorm:"not null" json:"editor_id"`
	PreviousContent string    `gorm:"type:text;not null" json:"previous_content"`
	Reason          string    `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
