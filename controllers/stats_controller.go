package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

// StatsController provides engine-wide statistics such as post counts and
// moderation backlog size.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics across all forums.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var forumCount int64
	var topicCount int64
	var replyCount int64
	var pendingPosts int64
	var pendingReports int64
	var postsToday int64

	if err := s.db.Model(&models.Forum{}).Where("is_active = ?", true).Count(&forumCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		forumCount = 0
	}
	if err := s.db.Model(&models.Post{}).
		Where("is_active = ? AND parent_id IS NULL", true).
		Count(&topicCount).Error; err != nil {
		topicCount = 0
	}
	if err := s.db.Model(&models.Post{}).
		Where("is_active = ? AND parent_id IS NOT NULL", true).
		Count(&replyCount).Error; err != nil {
		replyCount = 0
	}
	if err := s.db.Model(&models.Post{}).
		Where("is_active = ? AND moderation_status = ?", true, models.ModerationPending).
		Count(&pendingPosts).Error; err != nil {
		pendingPosts = 0
	}
	if err := s.db.Model(&models.Report{}).
		Where("status = ?", models.ReportPending).
		Count(&pendingReports).Error; err != nil {
		pendingReports = 0
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	if err := s.db.Model(&models.Post{}).
		Where("is_active = ? AND created_at >= ?", true, startOfDay).
		Count(&postsToday).Error; err != nil {
		postsToday = 0
	}

	utils.Success(ctx, gin.H{
		"forum_count":          forumCount,
		"topic_count":          topicCount,
		"reply_count":          replyCount,
		"pending_post_count":   pendingPosts,
		"pending_report_count": pendingReports,
		"posts_today":          postsToday,
	})
}
