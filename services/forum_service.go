package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// ForumService is the forum registry: containers, moderator sets, lock/pin
// flags and the denormalized aggregate counters.
type ForumService struct {
	db *gorm.DB
}

// NewForumService creates a new ForumService instance.
func NewForumService(db *gorm.DB) *ForumService {
	return &ForumService{db: db}
}

// CreateForumInput carries the fields for a new forum.
type CreateForumInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Rules           string `json:"rules"`
	CategoryID      uint   `json:"category_id"`
	RequireApproval bool   `json:"require_approval"`
}

// UpdateForumInput is a partial patch; nil fields stay untouched.
type UpdateForumInput struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Rules           *string `json:"rules"`
	RequireApproval *bool   `json:"require_approval"`
	IsPinned        *bool   `json:"is_pinned"`
	IsLocked        *bool   `json:"is_locked"`
}

// CreateForum registers a new discussion container. Admin only; the name
// must be unique within its category (case-insensitive) and the category
// must exist and be active.
func (s *ForumService) CreateForum(ctx context.Context, actor Actor, in CreateForumInput) (*models.Forum, error) {
	if !actor.IsAdmin() {
		return nil, utils.Forbidden("only administrators can create forums")
	}
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return nil, utils.Invalid("forum name must be between 3 and 100 characters")
	}

	db := s.db.WithContext(ctx)

	var cat models.Category
	if err := db.First(&cat, in.CategoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("category not found")
		}
		return nil, utils.Internal("failed to load category", err)
	}
	if !cat.IsActive {
		return nil, utils.NotFound("category not found")
	}

	if err := s.checkNameFree(db, in.CategoryID, name, 0); err != nil {
		return nil, err
	}

	forum := models.Forum{
		CategoryID:      in.CategoryID,
		CreatedByID:     actor.UserID,
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		Rules:           in.Rules,
		RequireApproval: in.RequireApproval,
		IsActive:        true,
	}
	if err := db.Create(&forum).Error; err != nil {
		return nil, utils.Internal("failed to create forum", err)
	}
	return &forum, nil
}

// UpdateForum applies a partial patch. Name/description/rules may be changed
// by the creator, any listed moderator, or an administrator; the pin and
// lock flags only by an administrator.
func (s *ForumService) UpdateForum(ctx context.Context, actor Actor, forumID uint, in UpdateForumInput) (*models.Forum, error) {
	db := s.db.WithContext(ctx)
	forum, err := loadActiveForum(db, forumID)
	if err != nil {
		return nil, err
	}

	perms, err := resolvePermissions(db, actor, forum, nil)
	if err != nil {
		return nil, err
	}
	canManage := perms.CanModerate || forum.CreatedByID == actor.UserID

	updates := map[string]interface{}{}

	if in.Name != nil {
		if !canManage {
			return nil, utils.Forbidden("you cannot edit this forum")
		}
		name := strings.TrimSpace(*in.Name)
		if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
			return nil, utils.Invalid("forum name must be between 3 and 100 characters")
		}
		if err := s.checkNameFree(db, forum.CategoryID, name, forum.ID); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.Description != nil {
		if !canManage {
			return nil, utils.Forbidden("you cannot edit this forum")
		}
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Rules != nil {
		if !canManage {
			return nil, utils.Forbidden("you cannot edit this forum")
		}
		updates["rules"] = *in.Rules
	}
	if in.RequireApproval != nil {
		if !canManage {
			return nil, utils.Forbidden("you cannot edit this forum")
		}
		updates["require_approval"] = *in.RequireApproval
	}
	if in.IsPinned != nil {
		if !actor.IsAdmin() {
			return nil, utils.Forbidden("only administrators can pin forums")
		}
		updates["is_pinned"] = *in.IsPinned
	}
	if in.IsLocked != nil {
		if !actor.IsAdmin() {
			return nil, utils.Forbidden("only administrators can lock forums")
		}
		updates["is_locked"] = *in.IsLocked
	}

	if len(updates) == 0 {
		return forum, nil
	}
	if err := db.Model(&models.Forum{}).Where("id = ?", forum.ID).Updates(updates).Error; err != nil {
		return nil, utils.Internal("failed to update forum", err)
	}
	return loadActiveForum(db, forumID)
}

// AddModerator adds userID to the forum's moderator set. Creator or admin
// only; re-adding an existing moderator is a conflict.
func (s *ForumService) AddModerator(ctx context.Context, actor Actor, forumID, userID uint) error {
	db := s.db.WithContext(ctx)
	forum, err := loadActiveForum(db, forumID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && forum.CreatedByID != actor.UserID {
		return utils.Forbidden("only the forum creator or an administrator can manage moderators")
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.NotFound("user not found")
		}
		return utils.Internal("failed to load user", err)
	}

	isMod, err := isForumModerator(db, forumID, userID)
	if err != nil {
		return utils.Internal("failed to check moderator membership", err)
	}
	if isMod {
		return utils.Conflict("user is already a moderator of this forum")
	}

	if err := db.Model(forum).Association("Moderators").Append(&user); err != nil {
		return utils.Internal("failed to add moderator", err)
	}
	return nil
}

// RemoveModerator removes userID from the forum's moderator set.
func (s *ForumService) RemoveModerator(ctx context.Context, actor Actor, forumID, userID uint) error {
	db := s.db.WithContext(ctx)
	forum, err := loadActiveForum(db, forumID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && forum.CreatedByID != actor.UserID {
		return utils.Forbidden("only the forum creator or an administrator can manage moderators")
	}

	isMod, err := isForumModerator(db, forumID, userID)
	if err != nil {
		return utils.Internal("failed to check moderator membership", err)
	}
	if !isMod {
		return utils.NotFound("user is not a moderator of this forum")
	}

	if err := db.Model(forum).Association("Moderators").Delete(&models.User{ID: userID}); err != nil {
		return utils.Internal("failed to remove moderator", err)
	}
	return nil
}

// SoftDeleteForum clears IsActive. Admin only; posts underneath are not
// individually altered, they just stop being reachable through listings.
func (s *ForumService) SoftDeleteForum(ctx context.Context, actor Actor, forumID uint) error {
	if !actor.IsAdmin() {
		return utils.Forbidden("only administrators can delete forums")
	}
	db := s.db.WithContext(ctx)
	if _, err := loadActiveForum(db, forumID); err != nil {
		return err
	}
	if err := db.Model(&models.Forum{}).Where("id = ?", forumID).Update("is_active", false).Error; err != nil {
		return utils.Internal("failed to delete forum", err)
	}
	return nil
}

// RecomputeForumStats rebuilds TopicCount, PostCount and the lastPost
// snapshot from active posts. This is the reconciliation path; the hot path
// maintains the same values incrementally.
func (s *ForumService) RecomputeForumStats(ctx context.Context, forumID uint) (*models.Forum, error) {
	db := s.db.WithContext(ctx)

	var forum models.Forum
	if err := db.First(&forum, forumID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("forum not found")
		}
		return nil, utils.Internal("failed to load forum", err)
	}

	var topicCount, postCount int64
	if err := db.Model(&models.Post{}).
		Where("forum_id = ? AND is_active = ? AND parent_id IS NULL", forumID, true).
		Count(&topicCount).Error; err != nil {
		return nil, utils.Internal("failed to count topics", err)
	}
	if err := db.Model(&models.Post{}).
		Where("forum_id = ? AND is_active = ?", forumID, true).
		Count(&postCount).Error; err != nil {
		return nil, utils.Internal("failed to count posts", err)
	}

	updates := map[string]interface{}{
		"topic_count":           topicCount,
		"post_count":            postCount,
		"last_post_id":          nil,
		"last_post_author_id":   nil,
		"last_post_author_name": "",
		"last_post_title":       "",
		"last_post_at":          nil,
	}

	var last models.Post
	err := db.Where("forum_id = ? AND is_active = ?", forumID, true).
		Order("created_at DESC").
		First(&last).Error
	switch {
	case err == nil:
		title := last.Title
		if last.Kind() == models.KindReply {
			var parent models.Post
			if perr := db.First(&parent, *last.ParentID).Error; perr == nil {
				title = parent.Title
			}
		}
		updates["last_post_id"] = last.ID
		updates["last_post_author_id"] = last.AuthorID
		updates["last_post_author_name"] = displayName(db, last.AuthorID)
		updates["last_post_title"] = title
		updates["last_post_at"] = last.CreatedAt
	case err != gorm.ErrRecordNotFound:
		return nil, utils.Internal("failed to load latest post", err)
	}

	if err := db.Model(&models.Forum{}).Where("id = ?", forumID).Updates(updates).Error; err != nil {
		return nil, utils.Internal("failed to store recomputed stats", err)
	}

	if err := db.First(&forum, forumID).Error; err != nil {
		return nil, utils.Internal("failed to reload forum", err)
	}
	return &forum, nil
}

// ListForums returns active forums, pinned first, optionally filtered by
// category.
func (s *ForumService) ListForums(ctx context.Context, categoryID *uint) ([]models.Forum, error) {
	db := s.db.WithContext(ctx)
	query := db.Where("is_active = ?", true).Order("is_pinned DESC, name ASC")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	var forums []models.Forum
	if err := query.Find(&forums).Error; err != nil {
		return nil, utils.Internal("failed to list forums", err)
	}
	return forums, nil
}

// GetForum returns one active forum with its moderator set.
func (s *ForumService) GetForum(ctx context.Context, forumID uint) (*models.Forum, error) {
	db := s.db.WithContext(ctx)
	var forum models.Forum
	if err := db.Preload("Moderators").First(&forum, forumID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("forum not found")
		}
		return nil, utils.Internal("failed to load forum", err)
	}
	if !forum.IsActive {
		return nil, utils.NotFound("forum not found")
	}
	return &forum, nil
}

func (s *ForumService) checkNameFree(db *gorm.DB, categoryID uint, name string, excludeID uint) error {
	query := db.Model(&models.Forum{}).
		Where("category_id = ? AND LOWER(name) = LOWER(?)", categoryID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return utils.Internal("failed to check forum name", err)
	}
	if n > 0 {
		return utils.Conflict("a forum with this name already exists in the category")
	}
	return nil
}

// loadActiveForum fetches a forum, treating inactive the same as missing.
func loadActiveForum(tx *gorm.DB, id uint) (*models.Forum, error) {
	var forum models.Forum
	if err := tx.First(&forum, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("forum not found")
		}
		return nil, utils.Internal("failed to load forum", err)
	}
	if !forum.IsActive {
		return nil, utils.NotFound("forum not found")
	}
	return &forum, nil
}
