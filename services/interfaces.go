package services

import (
	"context"

	"github.com/cppla/forumkit/models"
)

// The engine interfaces let controllers depend on behavior rather than
// concrete services, so handler tests can substitute mocks.

type ForumEngine interface {
	CreateForum(ctx context.Context, actor Actor, in CreateForumInput) (*models.Forum, error)
	UpdateForum(ctx context.Context, actor Actor, forumID uint, in UpdateForumInput) (*models.Forum, error)
	AddModerator(ctx context.Context, actor Actor, forumID, userID uint) error
	RemoveModerator(ctx context.Context, actor Actor, forumID, userID uint) error
	SoftDeleteForum(ctx context.Context, actor Actor, forumID uint) error
	RecomputeForumStats(ctx context.Context, forumID uint) (*models.Forum, error)
	ListForums(ctx context.Context, categoryID *uint) ([]models.Forum, error)
	GetForum(ctx context.Context, forumID uint) (*models.Forum, error)
}

type PostEngine interface {
	CreateTopic(ctx context.Context, actor Actor, in CreateTopicInput) (*models.Post, error)
	CreateReply(ctx context.Context, actor Actor, in CreateReplyInput) (*models.Post, error)
	EditPost(ctx context.Context, actor Actor, postID uint, in EditPostInput) (*models.Post, error)
	SoftDeletePost(ctx context.Context, actor Actor, postID uint) error
	React(ctx context.Context, actor Actor, postID uint, value models.ReactionValue) (*PostDetail, error)
	ListTopics(ctx context.Context, viewer Actor, forumID uint, q ListQuery) (*PostPage, error)
	ListReplies(ctx context.Context, viewer Actor, topicID uint, q ListQuery) (*PostPage, error)
	GetPost(ctx context.Context, viewer Actor, postID uint) (*PostDetail, error)
}

type ModerationEngine interface {
	Approve(ctx context.Context, actor Actor, postID uint) (*models.Post, error)
	Reject(ctx context.Context, actor Actor, postID uint, reason string) (*models.Post, error)
	SetPinned(ctx context.Context, actor Actor, postID uint, pinned bool) error
	SetLocked(ctx context.Context, actor Actor, postID uint, locked bool) error
	ResolveReport(ctx context.Context, actor Actor, postID, reportID uint, reason string) (*models.Report, error)
	DismissReport(ctx context.Context, actor Actor, postID, reportID uint) (*models.Report, error)
}

type ReportEngine interface {
	FileReport(ctx context.Context, actor Actor, postID uint, reason models.ReportReason, detail string) (*models.Report, error)
	ListReports(ctx context.Context, actor Actor, postID uint, status string, page, limit int) ([]models.Report, int64, error)
}

var (
	_ ForumEngine      = (*ForumService)(nil)
	_ PostEngine       = (*PostService)(nil)
	_ ModerationEngine = (*ModerationService)(nil)
	_ ReportEngine     = (*ReportService)(nil)
)
