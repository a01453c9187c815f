package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// ReportService files abuse reports against posts and escalates posts
// whose pending report count crosses the configured threshold.
type ReportService struct {
	db   *gorm.DB
	opts Options
}

// NewReportService creates a new ReportService instance.
func NewReportService(db *gorm.DB, opts Options) *ReportService {
	return &ReportService{db: db, opts: opts}
}

// FileReport records a report against an active post. One pending report
// per reporter per post; a second attempt is a conflict. When the pending
// count reaches the threshold the post escalates to flagged, once, and
// never out of a terminal state.
func (r *ReportService) FileReport(ctx context.Context, actor Actor, postID uint, reason models.ReportReason, detail string) (*models.Report, error) {
	if !reason.Valid() {
		return nil, utils.Invalid("invalid report reason")
	}
	if len(detail) > 500 {
		return nil, utils.Invalid("report detail must be at most 500 characters")
	}

	db := r.db.WithContext(ctx)
	report := models.Report{
		PostID:      postID,
		ReporterID:  actor.UserID,
		Reason:      reason,
		Description: detail,
		Status:      models.ReportPending,
	}

	escalated := false
	err := db.Transaction(func(tx *gorm.DB) error {
		// Lock the post row so concurrent filings on the same post
		// serialize: the duplicate check and the pending count below
		// are only correct when read under this lock.
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.NotFound("post not found")
			}
			return utils.Internal("failed to load post", err)
		}
		if !post.IsActive {
			return utils.NotFound("post not found")
		}
		if post.AuthorID == actor.UserID {
			return utils.Invalid("you cannot report your own post")
		}

		var dup int64
		if err := tx.Model(&models.Report{}).
			Where("post_id = ? AND reporter_id = ? AND status = ?", post.ID, actor.UserID, models.ReportPending).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return utils.Conflict("you have already reported this post")
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}

		var pending int64
		if err := tx.Model(&models.Report{}).
			Where("post_id = ? AND status = ?", post.ID, models.ReportPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if int(pending) < r.opts.ReportThreshold {
			return nil
		}
		// Guarded so escalation fires once and terminal states stay put.
		res := tx.Model(&models.Post{}).
			Where("id = ? AND moderation_status NOT IN ?", post.ID,
				[]models.ModerationStatus{models.ModerationRejected, models.ModerationFlagged}).
			Update("moderation_status", models.ModerationFlagged)
		if res.Error != nil {
			return res.Error
		}
		escalated = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, asDomainErr(err, "failed to file report")
	}

	utils.MetricReportsFiled.Inc()
	if escalated {
		utils.MetricReportsEscalated.Inc()
	}
	return &report, nil
}

// ListReports returns reports for the moderation queue, staff only.
// Status filters to pending/resolved/dismissed; postID of 0 means all
// posts in the actor's reach.
func (r *ReportService) ListReports(ctx context.Context, actor Actor, postID uint, status string, page, limit int) ([]models.Report, int64, error) {
	db := r.db.WithContext(ctx)

	if postID != 0 {
		post, err := loadPost(db, postID)
		if err != nil {
			return nil, 0, err
		}
		forum, err := loadForum(db, post.ForumID)
		if err != nil {
			return nil, 0, err
		}
		perms, err := resolvePermissions(db, actor, forum, post)
		if err != nil {
			return nil, 0, err
		}
		if !perms.CanModerate {
			return nil, 0, utils.Forbidden("moderator privileges required")
		}
	} else if !actor.IsAdmin() && actor.Role != models.RoleModerator {
		return nil, 0, utils.Forbidden("moderator privileges required")
	}

	page, limit = normalizePage(page, limit)
	query := db.Model(&models.Report{})
	if postID != 0 {
		query = query.Where("post_id = ?", postID)
	}
	switch status {
	case "":
	case string(models.ReportPending), string(models.ReportResolved), string(models.ReportDismissed):
		query = query.Where("status = ?", status)
	default:
		return nil, 0, utils.Invalid("invalid report status filter")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.Internal("failed to count reports", err)
	}
	var reports []models.Report
	if err := query.Preload("Reporter").
		Order("created_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, 0, utils.Internal("failed to list reports", err)
	}
	return reports, total, nil
}
