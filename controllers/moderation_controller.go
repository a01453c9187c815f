package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

// ModerationController exposes the moderation queue actions over HTTP.
// Permission checks live in the service layer; handlers only shape I/O.
type ModerationController struct {
	moderation services.ModerationEngine
}

// NewModerationController creates a new ModerationController instance.
func NewModerationController(moderation services.ModerationEngine) *ModerationController {
	return &ModerationController{moderation: moderation}
}

// ApprovePost publishes a pending post.
func (m *ModerationController) ApprovePost(ctx *gin.Context) {
	postID, actor, ok := m.postAndActor(ctx)
	if !ok {
		return
	}

	post, err := m.moderation.Approve(ctx.Request.Context(), actor, postID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches(postID)
	utils.Success(ctx, post)
}

// RejectPost hides a pending or flagged post.
func (m *ModerationController) RejectPost(ctx *gin.Context) {
	postID, actor, ok := m.postAndActor(ctx)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a missing reason is recorded as empty.
	_ = ctx.ShouldBindJSON(&req)

	post, err := m.moderation.Reject(ctx.Request.Context(), actor, postID, req.Reason)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches(postID)
	utils.Success(ctx, post)
}

// PinPost sets or clears the pin flag.
func (m *ModerationController) PinPost(ctx *gin.Context) {
	m.flag(ctx, m.moderation.SetPinned)
}

// LockPost sets or clears the reply lock.
func (m *ModerationController) LockPost(ctx *gin.Context) {
	m.flag(ctx, m.moderation.SetLocked)
}

// ResolveReport upholds a report and removes the reported post.
func (m *ModerationController) ResolveReport(ctx *gin.Context) {
	postID, actor, ok := m.postAndActor(ctx)
	if !ok {
		return
	}
	reportID, ok := parseUintParam(ctx, "reportID")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid report id")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = ctx.ShouldBindJSON(&req)

	report, err := m.moderation.ResolveReport(ctx.Request.Context(), actor, postID, reportID, req.Reason)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches(postID)
	utils.Success(ctx, report)
}

// DismissReport closes a report without acting on the post.
func (m *ModerationController) DismissReport(ctx *gin.Context) {
	postID, actor, ok := m.postAndActor(ctx)
	if !ok {
		return
	}
	reportID, ok := parseUintParam(ctx, "reportID")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid report id")
		return
	}

	report, err := m.moderation.DismissReport(ctx.Request.Context(), actor, postID, reportID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

func (m *ModerationController) flag(ctx *gin.Context, apply func(ctx context.Context, actor services.Actor, postID uint, value bool) error) {
	postID, actor, ok := m.postAndActor(ctx)
	if !ok {
		return
	}
	var req struct {
		Value *bool `json:"value" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Value == nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if err := apply(ctx.Request.Context(), actor, postID, *req.Value); err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches(postID)
	utils.Success(ctx, gin.H{"post_id": postID, "value": *req.Value})
}

func (m *ModerationController) postAndActor(ctx *gin.Context) (uint, services.Actor, bool) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return 0, services.Actor{}, false
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return 0, services.Actor{}, false
	}
	return postID, actor, true
}

func invalidatePostCaches(postID uint) {
	utils.InvalidateByPrefix("cache:topics:")
	utils.InvalidateByPrefix(fmt.Sprintf("cache:post:detail:%d", postID))
}
