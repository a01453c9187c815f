package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// PostService is the post store: topics, replies, edits, reactions and the
// per-post counters.
type PostService struct {
	db   *gorm.DB
	opts Options
}

// NewPostService creates a new PostService instance.
func NewPostService(db *gorm.DB, opts Options) *PostService {
	return &PostService{db: db, opts: opts}
}

// CreateTopicInput carries the fields for a new root post.
type CreateTopicInput struct {
	ForumID uint   `json:"forum_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateReplyInput carries the fields for a new reply.
type CreateReplyInput struct {
	ParentID uint   `json:"parent_id"`
	Content  string `json:"content"`
}

// EditPostInput is a partial patch; nil fields stay untouched.
type EditPostInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Reason  string  `json:"reason"`
}

// ListQuery selects a page of posts. Status is honored for staff only.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Status models.ModerationStatus
}

// PostPage is one page of posts with pagination metadata.
type PostPage struct {
	Items      []models.Post `json:"items"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// PostDetail is a single post with its reaction tallies.
type PostDetail struct {
	Post     models.Post `json:"post"`
	Likes    int64       `json:"likes"`
	Dislikes int64       `json:"dislikes"`
}

// CreateTopic inserts a root post into an active, unlocked forum. The
// moderation status is seeded from the forum policy; the forum counters and
// lastPost snapshot update in the same transaction.
func (s *PostService) CreateTopic(ctx context.Context, actor Actor, in CreateTopicInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	forum, err := loadActiveForum(db, in.ForumID)
	if err != nil {
		return nil, err
	}
	if forum.IsLocked {
		return nil, utils.Locked("forum is locked")
	}

	status := models.ModerationApproved
	if forum.RequireApproval {
		status = models.ModerationPending
	}

	now := time.Now()
	post := models.Post{
		ForumID:          forum.ID,
		AuthorID:         actor.UserID,
		Title:            title,
		Content:          content,
		IsActive:         true,
		IsApproved:       status == models.ModerationApproved,
		ModerationStatus: status,
		LastActivity:     now,
	}

	authorName := displayName(db, actor.UserID)
	if authorName == "" {
		authorName = actor.Username
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return applyCreateCounters(tx, &post, authorName, title, now)
	})
	if err != nil {
		return nil, utils.Internal("failed to create topic", err)
	}

	utils.MetricTopicsCreated.Inc()
	return &post, nil
}

// CreateReply inserts a reply under an active, unlocked topic in an
// unlocked forum. Nesting stops at one level: replies to replies are
// rejected. Parent and forum counters update in the same transaction.
func (s *PostService) CreateReply(ctx context.Context, actor Actor, in CreateReplyInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	parent, err := loadPost(db, in.ParentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsActive {
		return nil, utils.NotFound("post not found")
	}
	if parent.Kind() == models.KindReply {
		return nil, utils.Invalid("replies cannot be nested under replies")
	}

	forum, err := loadActiveForum(db, parent.ForumID)
	if err != nil {
		return nil, err
	}
	if forum.IsLocked {
		return nil, utils.Locked("forum is locked")
	}
	if parent.IsLocked {
		return nil, utils.Locked("post is locked")
	}

	status := models.ModerationApproved
	if forum.RequireApproval {
		status = models.ModerationPending
	}

	now := time.Now()
	post := models.Post{
		ForumID:          forum.ID,
		AuthorID:         actor.UserID,
		ParentID:         &parent.ID,
		Content:          content,
		IsActive:         true,
		IsApproved:       status == models.ModerationApproved,
		ModerationStatus: status,
		LastActivity:     now,
	}

	authorName := displayName(db, actor.UserID)
	if authorName == "" {
		authorName = actor.Username
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return applyCreateCounters(tx, &post, authorName, parent.Title, now)
	})
	if err != nil {
		return nil, utils.Internal("failed to create reply", err)
	}

	utils.MetricRepliesCreated.Inc()
	return &post, nil
}

// EditPost updates title/content. Authors may edit within the configured
// window on unlocked posts; staff edit anytime. The previous content is
// appended to the edit history in the same transaction.
func (s *PostService) EditPost(ctx context.Context, actor Actor, postID uint, in EditPostInput) (*models.Post, error) {
	db := s.db.WithContext(ctx)
	post, err := loadPost(db, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsActive {
		return nil, utils.NotFound("post not found")
	}

	forum, err := loadForum(db, post.ForumID)
	if err != nil {
		return nil, err
	}
	perms, err := resolvePermissions(db, actor, forum, post)
	if err != nil {
		return nil, err
	}
	if !perms.CanEdit {
		return nil, utils.Forbidden("you can only edit your own posts")
	}
	if !perms.CanModerate {
		if post.IsLocked {
			return nil, utils.Locked("post is locked")
		}
		if time.Since(post.CreatedAt) > s.opts.AuthorEditWindow {
			return nil, utils.Forbidden("the edit window for this post has passed")
		}
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if post.Kind() == models.KindReply {
			return nil, utils.Invalid("replies have no title")
		}
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	contentChanged := false
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if err := validateContent(content); err != nil {
			return nil, err
		}
		contentChanged = content != post.Content
		updates["content"] = content
	}
	if len(updates) == 0 {
		return post, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if contentChanged {
			edit := models.PostEdit{
				PostID:          post.ID,
				EditorID:        actor.UserID,
				PreviousContent: post.Content,
				Reason:          in.Reason,
			}
			if err := tx.Create(&edit).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, utils.Internal("failed to edit post", err)
	}
	return loadPost(db, postID)
}

// SoftDeletePost clears IsActive and applies the inverse counter
// propagation. Idempotent: deleting an already-deleted post succeeds
// without touching any counter. Replies of a deleted topic are left as
// they are; listings hide them with their parent.
func (s *PostService) SoftDeletePost(ctx context.Context, actor Actor, postID uint) error {
	db := s.db.WithContext(ctx)
	post, err := loadPost(db, postID)
	if err != nil {
		return err
	}

	forum, err := loadForum(db, post.ForumID)
	if err != nil {
		return err
	}
	perms, err := resolvePermissions(db, actor, forum, post)
	if err != nil {
		return err
	}
	if !perms.IsOwner && !perms.CanModerate {
		return utils.Forbidden("you can only delete your own posts")
	}

	if !post.IsActive {
		return nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := applySoftDeleteCounters(tx, post)
		return err
	})
	if err != nil {
		return utils.Internal("failed to delete post", err)
	}
	utils.MetricPostsDeleted.Inc()
	return nil
}

// React toggles the caller's like or dislike on an active post. The same
// value again removes it; the opposite value replaces it. Membership is
// kept exclusive by the unique (post, user) index and atomic upserts.
func (s *PostService) React(ctx context.Context, actor Actor, postID uint, value models.ReactionValue) (*PostDetail, error) {
	if !value.Valid() {
		return nil, utils.Invalid("reaction must be like or dislike")
	}

	db := s.db.WithContext(ctx)
	post, err := loadPost(db, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsActive {
		return nil, utils.NotFound("post not found")
	}

	var existing models.Reaction
	err = db.Where("post_id = ? AND user_id = ?", postID, actor.UserID).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		r := models.Reaction{PostID: postID, UserID: actor.UserID, Value: value}
		// Upsert: a concurrent first toggle lands on the same row instead
		// of violating the unique index.
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": time.Now()}),
		}).Create(&r).Error; err != nil {
			return nil, utils.Internal("failed to store reaction", err)
		}
	case err != nil:
		return nil, utils.Internal("failed to load reaction", err)
	case existing.Value == value:
		if err := db.Where("post_id = ? AND user_id = ? AND value = ?", postID, actor.UserID, value).
			Delete(&models.Reaction{}).Error; err != nil {
			return nil, utils.Internal("failed to remove reaction", err)
		}
	default:
		if err := db.Model(&models.Reaction{}).
			Where("post_id = ? AND user_id = ?", postID, actor.UserID).
			Update("value", value).Error; err != nil {
			return nil, utils.Internal("failed to switch reaction", err)
		}
	}

	return s.detailFor(db, post)
}

// ListTopics returns a page of topics in a forum. Non-staff viewers only
// ever see approved topics; staff may filter by any status.
func (s *PostService) ListTopics(ctx context.Context, viewer Actor, forumID uint, q ListQuery) (*PostPage, error) {
	db := s.db.WithContext(ctx)
	forum, err := loadActiveForum(db, forumID)
	if err != nil {
		return nil, err
	}
	perms, err := resolvePermissions(db, viewer, forum, nil)
	if err != nil {
		return nil, err
	}

	query := db.Model(&models.Post{}).
		Where("forum_id = ? AND parent_id IS NULL", forumID)
	query = applyVisibility(query, perms, q.Status)

	return s.fetchPage(query, q, "is_pinned DESC, last_activity DESC")
}

// ListReplies returns a page of replies under a topic, oldest first by
// default. Replies are hidden with their parent: an inactive topic yields
// NotFound.
func (s *PostService) ListReplies(ctx context.Context, viewer Actor, topicID uint, q ListQuery) (*PostPage, error) {
	db := s.db.WithContext(ctx)
	topic, err := loadPost(db, topicID)
	if err != nil {
		return nil, err
	}
	if topic.Kind() != models.KindTopic {
		return nil, utils.Invalid("post is not a topic")
	}
	if !topic.IsActive {
		return nil, utils.NotFound("post not found")
	}

	forum, err := loadForum(db, topic.ForumID)
	if err != nil {
		return nil, err
	}
	perms, err := resolvePermissions(db, viewer, forum, nil)
	if err != nil {
		return nil, err
	}

	query := db.Model(&models.Post{}).
		Where("parent_id = ?", topicID)
	query = applyVisibility(query, perms, q.Status)

	return s.fetchPage(query, q, "created_at ASC")
}

// GetPost returns one post with reaction tallies, incrementing the view
// counter best-effort. Staff and owners see any status; everyone else only
// active approved posts.
func (s *PostService) GetPost(ctx context.Context, viewer Actor, postID uint) (*PostDetail, error) {
	db := s.db.WithContext(ctx)

	var post models.Post
	if err := db.Preload("Author").First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("post not found")
		}
		return nil, utils.Internal("failed to load post", err)
	}

	forum, err := loadForum(db, post.ForumID)
	if err != nil {
		return nil, err
	}
	perms, err := resolvePermissions(db, viewer, forum, &post)
	if err != nil {
		return nil, err
	}
	if !perms.CanModerate && !perms.IsOwner {
		if !post.IsActive || post.ModerationStatus != models.ModerationApproved {
			return nil, utils.NotFound("post not found")
		}
	}
	if perms.CanModerate {
		if err := db.Preload("Author").Preload("Reports").Preload("Edits").First(&post, postID).Error; err != nil {
			return nil, utils.Internal("failed to load post", err)
		}
	}

	// Best-effort view counter: a lost increment under load is acceptable,
	// a failed read of the post is not.
	_ = db.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	post.ViewCount++

	return s.detailFor(db, &post)
}

func (s *PostService) detailFor(db *gorm.DB, post *models.Post) (*PostDetail, error) {
	var likes, dislikes int64
	if err := db.Model(&models.Reaction{}).
		Where("post_id = ? AND value = ?", post.ID, models.ReactionLike).
		Count(&likes).Error; err != nil {
		return nil, utils.Internal("failed to count likes", err)
	}
	if err := db.Model(&models.Reaction{}).
		Where("post_id = ? AND value = ?", post.ID, models.ReactionDislike).
		Count(&dislikes).Error; err != nil {
		return nil, utils.Internal("failed to count dislikes", err)
	}
	return &PostDetail{Post: *post, Likes: likes, Dislikes: dislikes}, nil
}

func (s *PostService) fetchPage(query *gorm.DB, q ListQuery, defaultOrder string) (*PostPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.Internal("failed to count posts", err)
	}

	query = applySort(query, q.Sort, defaultOrder)

	var items []models.Post
	if err := query.Preload("Author").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, utils.Internal("failed to list posts", err)
	}

	return &PostPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func applyVisibility(query *gorm.DB, perms Permissions, status models.ModerationStatus) *gorm.DB {
	if perms.CanModerate {
		if status != "" {
			// An explicit status filter includes hidden rows; rejected
			// posts are soft-deleted, so filtering them out here would
			// leave the rejected queue permanently empty.
			return query.Where("moderation_status = ?", status)
		}
		return query.Where("is_active = ?", true)
	}
	return query.Where("is_active = ? AND moderation_status = ?", true, models.ModerationApproved)
}

func applySort(query *gorm.DB, sort, defaultOrder string) *gorm.DB {
	switch sort {
	case "newest":
		return query.Order("created_at DESC")
	case "oldest":
		return query.Order("created_at ASC")
	case "most_liked":
		return query.Order("(SELECT COUNT(*) FROM post_reactions r WHERE r.post_id = posts.id AND r.value = 'like') DESC, created_at DESC")
	case "most_replied":
		return query.Order("reply_count DESC, created_at DESC")
	default:
		return query.Order(defaultOrder)
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n < 3 || n > 200 {
		return utils.Invalid("title must be between 3 and 200 characters")
	}
	return nil
}

func validateContent(content string) error {
	if n := utf8.RuneCountInString(content); n < 1 || n > 10000 {
		return utils.Invalid("content must be between 1 and 10000 characters")
	}
	return nil
}

// loadPost fetches a post row; callers decide how inactive rows are
// treated.
func loadPost(tx *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	if err := tx.First(&post, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("post not found")
		}
		return nil, utils.Internal("failed to load post", err)
	}
	return &post, nil
}

// loadForum fetches a forum row regardless of its active flag, for
// permission resolution against posts in soft-deleted forums.
func loadForum(tx *gorm.DB, id uint) (*models.Forum, error) {
	var forum models.Forum
	if err := tx.First(&forum, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFound("forum not found")
		}
		return nil, utils.Internal("failed to load forum", err)
	}
	return &forum, nil
}
