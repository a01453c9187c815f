package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/forumkit/middleware"
	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuth injects an identity without going through token parsing.
func fakeAuth(u models.User) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, u.ID)
		ctx.Set(middleware.ContextUsernameKey, u.Username)
		ctx.Set(middleware.ContextRoleKey, string(u.Role))
		ctx.Next()
	}
}

type env struct {
	db    *gorm.DB
	admin models.User
	alice models.User
	bob   models.User
	forum models.Forum
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Forum{},
		&models.Post{}, &models.Reaction{}, &models.Report{}, &models.PostEdit{},
	))

	admin := models.User{Username: "admin", Role: models.RoleAdmin, IsActive: true}
	alice := models.User{Username: "alice", Role: models.RoleUser, IsActive: true}
	bob := models.User{Username: "bob", Role: models.RoleUser, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	cat := models.Category{Name: "general", IsActive: true}
	require.NoError(t, db.Create(&cat).Error)
	forum := models.Forum{CategoryID: cat.ID, CreatedByID: admin.ID, Name: "go talk", IsActive: true}
	require.NoError(t, db.Create(&forum).Error)

	return &env{db: db, admin: admin, alice: alice, bob: bob, forum: forum}
}

// routerAs wires the post routes with the given identity injected.
func (e *env) routerAs(u models.User) *gin.Engine {
	opts := services.Options{ReportThreshold: 3, AuthorEditWindow: 24 * time.Hour}
	ctl := NewPostController(services.NewPostService(e.db, opts))

	r := gin.New()
	g := r.Group("/api/v1", fakeAuth(u))
	g.POST("/forums/:id/topics", ctl.CreateTopic)
	g.GET("/forums/:id/topics", ctl.ListTopics)
	g.POST("/posts/:id/replies", ctl.CreateReply)
	g.GET("/posts/:id/replies", ctl.ListReplies)
	g.GET("/posts/:id", ctl.GetPost)
	g.PATCH("/posts/:id", ctl.EditPost)
	g.DELETE("/posts/:id", ctl.DeletePost)
	g.POST("/posts/:id/reactions", ctl.React)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreateTopicEndpoint(t *testing.T) {
	e := newEnv(t)
	r := e.routerAs(e.alice)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/forums/%d/topics", e.forum.ID), gin.H{
		"forum_id": e.forum.ID,
		"title":    "hello from the http layer",
		"content":  "the body of the first http-made topic",
	})
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, 0, env.Code)

	var post models.Post
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Equal(t, e.alice.ID, post.AuthorID)
	assert.Equal(t, "hello from the http layer", post.Title)
}

func TestCreateTopicEndpointRejectsBadPayload(t *testing.T) {
	e := newEnv(t)
	r := e.routerAs(e.alice)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/forums/%d/topics", e.forum.ID), bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 40001, env.Code)
}

func TestReplyAndListFlow(t *testing.T) {
	e := newEnv(t)
	alice := e.routerAs(e.alice)
	bob := e.routerAs(e.bob)

	w := doJSON(t, alice, http.MethodPost, fmt.Sprintf("/api/v1/forums/%d/topics", e.forum.ID), gin.H{
		"forum_id": e.forum.ID,
		"title":    "a topic worth replying to",
		"content":  "enough content to pass the validator",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var topic models.Post
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &topic))

	w = doJSON(t, bob, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/replies", topic.ID), gin.H{
		"content": "a reply posted through the http api",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, bob, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/replies", topic.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.PostPage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, e.bob.ID, page.Items[0].AuthorID)

	// The reply bumped the parent's counter.
	w = doJSON(t, bob, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", topic.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail services.PostDetail
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &detail))
	assert.Equal(t, 1, detail.Post.ReplyCount)
}

func TestReactionEndpoint(t *testing.T) {
	e := newEnv(t)
	alice := e.routerAs(e.alice)
	bob := e.routerAs(e.bob)

	w := doJSON(t, alice, http.MethodPost, fmt.Sprintf("/api/v1/forums/%d/topics", e.forum.ID), gin.H{
		"forum_id": e.forum.ID,
		"title":    "rate this topic please",
		"content":  "some content that invites reactions",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var topic models.Post
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &topic))

	w = doJSON(t, bob, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/reactions", topic.ID), gin.H{"value": "like"})
	require.Equal(t, http.StatusOK, w.Code)
	var detail services.PostDetail
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &detail))
	assert.Equal(t, int64(1), detail.Likes)

	w = doJSON(t, bob, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/reactions", topic.ID), gin.H{"value": "sideways"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40001, decodeEnvelope(t, w).Code)
}

func TestDeleteForbiddenForStranger(t *testing.T) {
	e := newEnv(t)
	alice := e.routerAs(e.alice)
	bob := e.routerAs(e.bob)

	w := doJSON(t, alice, http.MethodPost, fmt.Sprintf("/api/v1/forums/%d/topics", e.forum.ID), gin.H{
		"forum_id": e.forum.ID,
		"title":    "a topic bob cannot delete",
		"content":  "only the author and staff may delete",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var topic models.Post
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &topic))

	w = doJSON(t, bob, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", topic.ID), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, decodeEnvelope(t, w).Code)
}

// mockPostEngine checks that the handler maps service errors verbatim.
type mockPostEngine struct {
	mock.Mock
	services.PostEngine
}

func (m *mockPostEngine) GetPost(ctx context.Context, viewer services.Actor, postID uint) (*services.PostDetail, error) {
	args := m.Called(ctx, viewer, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PostDetail), args.Error(1)
}

func TestGetPostErrorMapping(t *testing.T) {
	e := newEnv(t)
	eng := new(mockPostEngine)
	eng.On("GetPost", mock.Anything, mock.Anything, uint(99)).
		Return(nil, utils.NotFound("post not found"))

	ctl := NewPostController(eng)
	r := gin.New()
	r.GET("/api/v1/posts/:id", fakeAuth(e.alice), ctl.GetPost)

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts/99", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 40401, env.Code)
	assert.Equal(t, "post not found", env.Message)
	eng.AssertExpectations(t)
}
