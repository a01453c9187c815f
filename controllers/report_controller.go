package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

// ReportController exposes abuse report filing and the review queue.
type ReportController struct {
	reports services.ReportEngine
}

// NewReportController creates a new ReportController instance.
func NewReportController(reports services.ReportEngine) *ReportController {
	return &ReportController{reports: reports}
}

// FileReport records an abuse report against a post.
func (r *ReportController) FileReport(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"required"`
		Detail string `json:"detail"`
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

	report, err := r.reports.FileReport(ctx.Request.Context(), actor, postID, models.ReportReason(req.Reason), req.Detail)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	invalidatePostCaches(postID)
	utils.Success(ctx, report)
}

// ListPostReports pages the reports filed against one post. Staff only.
func (r *ReportController) ListPostReports(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	r.list(ctx, postID)
}

// ListReports pages the global report queue. Staff only.
func (r *ReportController) ListReports(ctx *gin.Context) {
	r.list(ctx, 0)
}

func (r *ReportController) list(ctx *gin.Context, postID uint) {
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))

	reports, total, err := r.reports.ListReports(ctx.Request.Context(), actor, postID, ctx.Query("status"), page, limit)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"items": reports,
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": int((total + int64(limit) - 1) / int64(limit)),
		},
	})
}
