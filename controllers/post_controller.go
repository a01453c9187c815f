package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

// PostController exposes the topic/reply lifecycle and reactions over HTTP.
type PostController struct {
	posts services.PostEngine
}

// NewPostController creates a new PostController instance.
func NewPostController(posts services.PostEngine) *PostController {
	return &PostController{posts: posts}
}

// CreateTopic opens a new thread in a forum.
func (p *PostController) CreateTopic(ctx *gin.Context) {
	var req services.CreateTopicInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	post, err := p.posts.CreateTopic(ctx.Request.Context(), actor, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidateTopic(post)
	utils.Success(ctx, post)
}

// CreateReply appends a reply to an existing topic.
func (p *PostController) CreateReply(ctx *gin.Context) {
	topicID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	var req services.CreateReplyInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	req.ParentID = topicID
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	post, err := p.posts.CreateReply(ctx.Request.Context(), actor, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidateTopic(post)
	utils.Success(ctx, post)
}

// EditPost applies a partial patch to a post the actor may edit.
func (p *PostController) EditPost(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	var req services.EditPostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	post, err := p.posts.EditPost(ctx.Request.Context(), actor, postID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	p.invalidateTopic(post)
	utils.Success(ctx, post)
}

// DeletePost soft-deletes a post (owner or staff).
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	actor, ok := currentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "unauthorized")
		return
	}

	if err := p.posts.SoftDeletePost(ctx.Request.Context(), actor, postID); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix("cache:topics:")
	utils.InvalidateByPrefix("cache:post:")
	utils.Success(ctx, gin.H{"deleted": true})
}

// React records a like or dislike; repeating the same reaction removes it.
func (p *PostController) React(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	var req struct {
		Value string `json:"value" binding:"required"`
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

	detail, err := p.posts.React(ctx.Request.Context(), actor, postID, models.ReactionValue(req.Value))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateByPrefix(fmt.Sprintf("cache:post:detail:%d", postID))
	utils.Success(ctx, detail)
}

// ListTopics pages the root posts of a forum. Anonymous, unfiltered pages
// are served from cache.
func (p *PostController) ListTopics(ctx *gin.Context) {
	forumID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid forum id")
		return
	}
	q := p.parseListQuery(ctx)
	viewer := optionalActor(ctx)

	if viewer.UserID == 0 && q.Status == "" {
		key := fmt.Sprintf("cache:topics:forum=%d:page=%d:size=%d:sort=%s", forumID, q.Page, q.Limit, q.Sort)
		b, err := utils.CacheGetOrBuild(key, 5*time.Minute, func() ([]byte, error) {
			page, err := p.posts.ListTopics(ctx.Request.Context(), viewer, forumID, q)
			if err != nil {
				return nil, err
			}
			return marshalEnvelope(page)
		})
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	page, err := p.posts.ListTopics(ctx.Request.Context(), viewer, forumID, q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// ListReplies pages the replies of a topic in chronological order.
func (p *PostController) ListReplies(ctx *gin.Context) {
	topicID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	q := p.parseListQuery(ctx)
	viewer := optionalActor(ctx)

	page, err := p.posts.ListReplies(ctx.Request.Context(), viewer, topicID, q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// GetPost returns one post with its reaction tallies.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	viewer := optionalActor(ctx)

	if viewer.UserID == 0 {
		key := fmt.Sprintf("cache:post:detail:%d", postID)
		b, err := utils.CacheGetOrBuild(key, 5*time.Minute, func() ([]byte, error) {
			detail, err := p.posts.GetPost(ctx.Request.Context(), viewer, postID)
			if err != nil {
				return nil, err
			}
			return marshalEnvelope(detail)
		})
		if err != nil {
			utils.Fail(ctx, err)
			return
		}
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	detail, err := p.posts.GetPost(ctx.Request.Context(), viewer, postID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, detail)
}

func (p *PostController) parseListQuery(ctx *gin.Context) services.ListQuery {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	return services.ListQuery{
		Page:   page,
		Limit:  limit,
		Sort:   ctx.Query("sort"),
		Status: models.ModerationStatus(ctx.Query("status")),
	}
}

func (p *PostController) invalidateTopic(post *models.Post) {
	utils.InvalidateByPrefix(fmt.Sprintf("cache:topics:forum=%d", post.ForumID))
	utils.InvalidateByPrefix(fmt.Sprintf("cache:post:detail:%d", post.ID))
	if post.ParentID != nil {
		utils.InvalidateByPrefix(fmt.Sprintf("cache:post:detail:%d", *post.ParentID))
	}
}

// marshalEnvelope wraps data in the standard response envelope so cached
// bytes match what utils.Success would have written.
func marshalEnvelope(data interface{}) ([]byte, error) {
	return json.Marshal(struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	}{Code: 0, Message: "success", Data: data})
}
