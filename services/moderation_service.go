package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// defaultRemovalReason is recorded when a report is upheld without an
// explicit reason.
const defaultRemovalReason = "content reported and removed"

// ModerationService drives the post visibility state machine
// (pending -> approved | rejected, flagged via escalation only) and the
// review workflow for individual reports.
type ModerationService struct {
	db *gorm.DB
}

// NewModerationService creates a new ModerationService instance.
func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db}
}

// Approve moves a pending post to approved. Re-approving an approved post
// is a no-op success; rejection is terminal and flagged posts resolve
// through their reports, so both fail with a conflict.
func (m *ModerationService) Approve(ctx context.Context, actor Actor, postID uint) (*models.Post, error) {
	db := m.db.WithContext(ctx)
	post, _, err := m.loadForModeration(db, actor, postID)
	if err != nil {
		return nil, err
	}

	switch post.ModerationStatus {
	case models.ModerationApproved:
		return post, nil
	case models.ModerationRejected:
		return nil, utils.Conflict("rejected posts cannot be re-approved")
	case models.ModerationFlagged:
		return nil, utils.Conflict("flagged posts must be resolved through their reports")
	}

	if err := db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"moderation_status": models.ModerationApproved,
		"is_approved":       true,
		"moderated_by_id":   actor.UserID,
	}).Error; err != nil {
		return nil, utils.Internal("failed to approve post", err)
	}
	utils.MetricModerationActions.WithLabelValues("approve").Inc()
	return loadPost(db, postID)
}

// Reject moves a pending or flagged post to rejected, hiding it and
// applying the soft-delete counter propagation in one transaction.
// Rejecting an already-rejected post is a no-op success.
func (m *ModerationService) Reject(ctx context.Context, actor Actor, postID uint, reason string) (*models.Post, error) {
	db := m.db.WithContext(ctx)
	post, _, err := m.loadForModeration(db, actor, postID)
	if err != nil {
		return nil, err
	}

	switch post.ModerationStatus {
	case models.ModerationRejected:
		return post, nil
	case models.ModerationApproved:
		return nil, utils.Conflict("approved posts can only be removed through reports or deletion")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := rejectPost(tx, post, actor.UserID, reason); err != nil {
			return err
		}
		_, err := applySoftDeleteCounters(tx, post)
		return err
	})
	if err != nil {
		return nil, utils.Internal("failed to reject post", err)
	}
	utils.MetricModerationActions.WithLabelValues("reject").Inc()
	return loadPost(db, postID)
}

// SetPinned toggles the pin flag. Orthogonal to moderation status;
// administrator only; idempotent.
func (m *ModerationService) SetPinned(ctx context.Context, actor Actor, postID uint, pinned bool) error {
	return m.setFlag(ctx, actor, postID, "is_pinned", pinned, "pin")
}

// SetLocked toggles the reply-blocking lock flag. Administrator only;
// idempotent.
func (m *ModerationService) SetLocked(ctx context.Context, actor Actor, postID uint, locked bool) error {
	return m.setFlag(ctx, actor, postID, "is_locked", locked, "lock")
}

func (m *ModerationService) setFlag(ctx context.Context, actor Actor, postID uint, column string, value bool, action string) error {
	if !actor.IsAdmin() {
		return utils.Forbidden("only administrators can " + action + " posts")
	}
	db := m.db.WithContext(ctx)
	post, err := loadPost(db, postID)
	if err != nil {
		return err
	}
	if err := db.Model(&models.Post{}).Where("id = ?", post.ID).Update(column, value).Error; err != nil {
		return utils.Internal("failed to update post flag", err)
	}
	utils.MetricModerationActions.WithLabelValues(action).Inc()
	return nil
}

// ResolveReport upholds a pending report: the report becomes resolved and
// the post is forced to rejected with the soft-delete propagation, all in
// one transaction. Resolving a non-pending report is a conflict.
func (m *ModerationService) ResolveReport(ctx context.Context, actor Actor, postID, reportID uint, reason string) (*models.Report, error) {
	db := m.db.WithContext(ctx)
	post, report, err := m.loadReport(db, actor, postID, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportPending {
		return nil, utils.Conflict("report is not pending")
	}

	if reason == "" {
		reason = defaultRemovalReason
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		// Guarded update: only one resolver wins a race on the same report.
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", report.ID, models.ReportPending).
			Updates(map[string]interface{}{
				"status":         models.ReportResolved,
				"resolved_by_id": actor.UserID,
				"resolved_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.Conflict("report is not pending")
		}
		if err := rejectPost(tx, post, actor.UserID, reason); err != nil {
			return err
		}
		_, err := applySoftDeleteCounters(tx, post)
		return err
	})
	if err != nil {
		return nil, asDomainErr(err, "failed to resolve report")
	}

	utils.MetricModerationActions.WithLabelValues("resolve_report").Inc()
	return m.reloadReport(db, reportID)
}

// DismissReport closes a pending report without touching the post.
func (m *ModerationService) DismissReport(ctx context.Context, actor Actor, postID, reportID uint) (*models.Report, error) {
	db := m.db.WithContext(ctx)
	_, report, err := m.loadReport(db, actor, postID, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportPending {
		return nil, utils.Conflict("report is not pending")
	}

	res := db.Model(&models.Report{}).
		Where("id = ? AND status = ?", report.ID, models.ReportPending).
		Updates(map[string]interface{}{
			"status":         models.ReportDismissed,
			"resolved_by_id": actor.UserID,
			"resolved_at":    time.Now(),
		})
	if res.Error != nil {
		return nil, utils.Internal("failed to dismiss report", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.Conflict("report is not pending")
	}

	utils.MetricModerationActions.WithLabelValues("dismiss_report").Inc()
	return m.reloadReport(db, reportID)
}

// rejectPost writes the rejected state; the caller pairs it with the
// counter propagation inside the same transaction.
func rejectPost(tx *gorm.DB, post *models.Post, moderatorID uint, reason string) error {
	return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"moderation_status": models.ModerationRejected,
		"is_approved":       false,
		"moderated_by_id":   moderatorID,
		"moderation_reason": reason,
	}).Error
}

func (m *ModerationService) loadForModeration(db *gorm.DB, actor Actor, postID uint) (*models.Post, *models.Forum, error) {
	post, err := loadPost(db, postID)
	if err != nil {
		return nil, nil, err
	}
	forum, err := loadForum(db, post.ForumID)
	if err != nil {
		return nil, nil, err
	}
	perms, err := resolvePermissions(db, actor, forum, post)
	if err != nil {
		return nil, nil, err
	}
	if !perms.CanModerate {
		return nil, nil, utils.Forbidden("moderator privileges required")
	}
	return post, forum, nil
}

func (m *ModerationService) loadReport(db *gorm.DB, actor Actor, postID, reportID uint) (*models.Post, *models.Report, error) {
	post, _, err := m.loadForModeration(db, actor, postID)
	if err != nil {
		return nil, nil, err
	}
	var report models.Report
	if err := db.Where("id = ? AND post_id = ?", reportID, postID).First(&report).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, utils.NotFound("report not found")
		}
		return nil, nil, utils.Internal("failed to load report", err)
	}
	return post, &report, nil
}

func (m *ModerationService) reloadReport(db *gorm.DB, reportID uint) (*models.Report, error) {
	var report models.Report
	if err := db.First(&report, reportID).Error; err != nil {
		return nil, utils.Internal("failed to reload report", err)
	}
	return &report, nil
}
