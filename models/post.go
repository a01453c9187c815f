package models

import "time"

// ModerationStatus is the lifecycle state controlling a post's visibility.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationFlagged  ModerationStatus = "flagged"
)

// PostKind distinguishes the two shapes a Post row can take.
type PostKind string

const (
	KindTopic PostKind = "topic"
	KindReply PostKind = "reply"
)

// Post serves as both topic and reply; a non-nil ParentID makes it a reply.
// ReplyCount and ViewCount are derived counters maintained incrementally.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ForumID  uint   `gorm:"index;not null" json:"forum_id"`
	AuthorID uint   `gorm:"index;not null" json:"author_id"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
	Title    string `gorm:"size:200" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`

	IsActive   bool `gorm:"default:true;index" json:"is_active"`
	IsPinned   bool `gorm:"default:false" json:"is_pinned"`
	IsLocked   bool `gorm:"default:false" json:"is_locked"`
	IsApproved bool `gorm:"default:false" json:"is_approved"`

	ModerationStatus ModerationStatus `gorm:"size:16;default:'pending';index" json:"moderation_status"`
	ModerationReason string           `gorm:"size:255" json:"moderation_reason,omitempty"`
	ModeratedByID    *uint            `json:"moderated_by_id,omitempty"`

	ReplyCount   int       `gorm:"default:0" json:"reply_count"`
	ViewCount    int       `gorm:"default:0" json:"view_count"`
	LastActivity time.Time `gorm:"index" json:"last_activity"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author  User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Reports []Report   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reports,omitempty"`
	Edits   []PostEdit `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"edits,omitempty"`
}

// Kind reports whether the row is a topic or a reply, so business logic can
// switch exhaustively over the two cases instead of sprinkling nil checks.
func (p *Post) Kind() PostKind {
	if p.ParentID == nil {
		return KindTopic
	}
	return KindReply
}
