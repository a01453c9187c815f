package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// Actor is the resolved principal acting on a request, as supplied by the
// identity collaborator. The engine never authenticates.
type Actor struct {
	UserID   uint
	Username string
	Role     models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Permissions is the capability set resolved once per request, before any
// operation logic runs, instead of re-deriving role checks inline.
type Permissions struct {
	IsOwner     bool
	CanEdit     bool
	CanModerate bool
	CanPin      bool
	CanLock     bool
}

// Options carries the tunable policy knobs of the engine.
type Options struct {
	ReportThreshold  int
	AuthorEditWindow time.Duration
}

// DefaultOptions returns the stock policy: escalation at 3 pending reports,
// authors may edit for 24 hours.
func DefaultOptions() Options {
	return Options{
		ReportThreshold:  3,
		AuthorEditWindow: 24 * time.Hour,
	}
}

// resolvePermissions computes the capability set for actor against a forum
// and, when given, a post inside it. Delegated moderation comes from either
// the global moderator role or membership in the forum's moderator set.
func resolvePermissions(tx *gorm.DB, actor Actor, forum *models.Forum, post *models.Post) (Permissions, error) {
	p := Permissions{}
	staff := actor.IsAdmin() || actor.Role == models.RoleModerator
	if !staff && forum != nil {
		isMod, err := isForumModerator(tx, forum.ID, actor.UserID)
		if err != nil {
			return p, utils.Internal("failed to resolve moderator membership", err)
		}
		staff = isMod
	}
	p.CanModerate = staff
	p.CanPin = actor.IsAdmin()
	p.CanLock = actor.IsAdmin()
	if post != nil {
		p.IsOwner = post.AuthorID == actor.UserID
		p.CanEdit = staff || p.IsOwner
	}
	return p, nil
}

func isForumModerator(tx *gorm.DB, forumID, userID uint) (bool, error) {
	var n int64
	err := tx.Table("forum_moderators").
		Where("forum_id = ? AND user_id = ?", forumID, userID).
		Count(&n).Error
	return n > 0, err
}

// displayName looks up a user's display name for denormalized snapshots.
func displayName(tx *gorm.DB, userID uint) string {
	var u models.User
	if err := tx.First(&u, userID).Error; err != nil {
		return ""
	}
	return u.Name()
}

// asDomainErr returns err unchanged when it already carries a domain kind,
// otherwise wraps it as an internal failure with msg.
func asDomainErr(err error, msg string) error {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return err
	}
	return utils.Internal(msg, err)
}
