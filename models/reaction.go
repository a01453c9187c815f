package models

import "time"

// ReactionValue is a like or dislike.
type ReactionValue string

const (
	ReactionLike    ReactionValue = "like"
	ReactionDislike ReactionValue = "dislike"
)

// Valid reports whether v is a member of the reaction enum.
func (v ReactionValue) Valid() bool {
	return v == ReactionLike || v == ReactionDislike
}

// Reaction is one user's like or dislike on one post. The unique index on
// (post_id, user_id) is what enforces like/dislike exclusivity: a user holds
// at most one row per post and toggles flip or delete it atomically.
type Reaction struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PostID    uint          `gorm:"uniqueIndex:idx_reaction_post_user;not null" json:"post_id"`
	UserID    uint          `gorm:"uniqueIndex:idx_reaction_post_user;not null" json:"user_id"`
	Value     ReactionValue `gorm:"size:8;not null" json:"value"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (Reaction) TableName() string { return "post_reactions" }
