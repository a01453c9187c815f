package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

// ForumController exposes forum registry management over HTTP.
type ForumController struct {
	forums services.ForumEngine
}

// NewForumController creates a new ForumController instance.
func NewForumController(forums services.ForumEngine) *ForumController {
	return &ForumController{forums: forums}
}

// CreateForum registers a new forum. Admin only.
func (f *ForumController) CreateForum(ctx *gin.Context) {
	var req services.CreateForumInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	forum, err := f.forums.CreateForum(ctx.Request.Context(), actor, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:forums:")
	utils.Success(ctx, forum)
}

// UpdateForum applies a partial patch to a forum.
func (f *ForumController) UpdateForum(ctx *gin.Context) {
	forumID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid forum id")
		return
	}
	var req services.UpdateForumInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	forum, err := f.forums.UpdateForum(ctx.Request.Context(), actor, forumID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:forums:")
	utils.Success(ctx, forum)
}

// DeleteForum soft-deletes a forum. Admin only.
func (f *ForumController) DeleteForum(ctx *gin.Context) {
	forumID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid forum id")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	if err := f.forums.SoftDeleteForum(ctx.Request.Context(), actor, forumID); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:forums:")
	utils.InvalidateByPrefix("cache:topics:")
	utils.Success(ctx, gin.H{"deleted": true})
}

// ListForums returns the forum directory, optionally filtered by category.
func (f *ForumController) ListForums(ctx *gin.Context) {
	var categoryID *uint
	if raw := ctx.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid category id")
			return
		}
		cid := uint(id)
		categoryID = &cid
	}

	key := "cache:forums:list:all"
	if categoryID != nil {
		key = fmt.Sprintf("cache:forums:list:cat=%d", *categoryID)
	}
	b, err := utils.CacheGetOrBuild(key, 10*time.Minute, func() ([]byte, error) {
		forums, err := f.forums.ListForums(ctx.Request.Context(), categoryID)
		if err != nil {
			return nil, err
		}
		return marshalEnvelope(gin.H{"items": forums, "total": len(forums)})
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "application/json", b)
}

// GetForum returns one forum with its moderator roster.
func (f *ForumController) GetForum(ctx *gin.Context) {
	forumID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid forum id")
		return
	}
	forum, err := f.forums.GetForum(ctx.Request.Context(), forumID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, forum)
}

// AddModerator grants forum-scoped moderation to a user.
func (f *ForumController) AddModerator(ctx *gin.Context) {
	f.changeModerator(ctx, f.forums.AddModerator)
}

// RemoveModerator revokes forum-scoped moderation.
func (f *ForumController) RemoveModerator(ctx *gin.Context) {
	f.changeModerator(ctx, f.forums.RemoveModerator)
}

func (f *ForumController) changeModerator(ctx *gin.Context, apply func(ctx context.Context, actor services.Actor, forumID, userID uint) error) {
	forumID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid forum id")
		return
	}
	var req struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	if err := apply(ctx.Request.Context(), actor, forumID, req.UserID); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"forum_id": forumID, "user_id": req.UserID})
}

// RecomputeStats rebuilds a forum's counters from its post rows.
func (f *ForumController) RecomputeStats(ctx *gin.Context) {
	forumID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid forum id")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}
	if !actor.IsAdmin() {
		utils.Error(ctx, http.StatusForbidden, 40301, "administrator privileges required")
		return
	}

	forum, err := f.forums.RecomputeForumStats(ctx.Request.Context(), forumID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:forums:")
	utils.Success(ctx, forum)
}
