package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/cppla/forumkit/models"
)

// Counter propagation: the invariant-preserving incremental updates applied
// in the same transaction as the post mutation that triggers them. All
// counter math runs as atomic add-delta expressions against the persisted
// row, never as read-modify-write in the application.

// applyCreateCounters runs inside the transaction that inserted post.
// snapshotTitle is the topic title shown in the forum's lastPost snapshot
// (the parent's title when post is a reply).
func applyCreateCounters(tx *gorm.DB, post *models.Post, authorName, snapshotTitle string, now time.Time) error {
	if post.Kind() == models.KindReply {
		if err := tx.Model(&models.Post{}).
			Where("id = ?", *post.ParentID).
			Updates(map[string]interface{}{
				"reply_count":   gorm.Expr("reply_count + 1"),
				"last_activity": now,
			}).Error; err != nil {
			return err
		}
	}

	forumUpdates := map[string]interface{}{
		"post_count":            gorm.Expr("post_count + 1"),
		"last_post_id":          post.ID,
		"last_post_author_id":   post.AuthorID,
		"last_post_author_name": authorName,
		"last_post_title":       snapshotTitle,
		"last_post_at":          now,
	}
	if post.Kind() == models.KindTopic {
		forumUpdates["topic_count"] = gorm.Expr("topic_count + 1")
	}
	return tx.Model(&models.Forum{}).
		Where("id = ?", post.ForumID).
		Updates(forumUpdates).Error
}

// applySoftDeleteCounters flips IsActive off and applies the inverse
// decrements. The guarded UPDATE makes the whole step idempotent: when the
// post is already inactive, RowsAffected is zero and no decrement runs, so
// a post can never be double-decremented. Returns whether the flip applied.
func applySoftDeleteCounters(tx *gorm.DB, post *models.Post) (bool, error) {
	res := tx.Model(&models.Post{}).
		Where("id = ? AND is_active = ?", post.ID, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if post.Kind() == models.KindReply {
		if err := tx.Model(&models.Post{}).
			Where("id = ?", *post.ParentID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error; err != nil {
			return false, err
		}
	}

	forumUpdates := map[string]interface{}{
		"post_count": gorm.Expr("post_count - 1"),
	}
	if post.Kind() == models.KindTopic {
		forumUpdates["topic_count"] = gorm.Expr("topic_count - 1")
	}
	if err := tx.Model(&models.Forum{}).
		Where("id = ?", post.ForumID).
		Updates(forumUpdates).Error; err != nil {
		return false, err
	}
	return true, nil
}
