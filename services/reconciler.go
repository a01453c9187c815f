package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// StartReconciler launches a background goroutine that periodically
// recomputes forum counters from the active post rows, repairing any
// drift left by crashed writers. It is best-effort and logs failures.
func StartReconciler(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	forums := NewForumService(db)
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)

			var ids []uint
			if err := db.Model(&models.Forum{}).Where("is_active = ?", true).Pluck("id", &ids).Error; err != nil {
				if utils.Sugar != nil {
					utils.Sugar.Warnf("reconciler forum query failed: %v", err)
				}
				continue
			}
			for _, id := range ids {
				if _, err := forums.RecomputeForumStats(context.Background(), id); err != nil {
					if utils.Sugar != nil {
						utils.Sugar.Warnf("reconciler failed for forum %d: %v", id, err)
					}
				}
			}
			if utils.Sugar != nil && len(ids) > 0 {
				utils.Sugar.Debugf("reconciled counters for %d forums", len(ids))
			}
		}
	}()
}
