package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/forumkit/models"
)

// openTestDB opens a fresh in-memory database per test. SQLite in-memory
// databases live per-connection, so the pool is pinned to one connection.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Forum{},
		&models.Post{},
		&models.Reaction{},
		&models.Report{},
		&models.PostEdit{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedCategory(t *testing.T, db *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name, IsActive: true}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedForum(t *testing.T, db *gorm.DB, categoryID, creatorID uint, name string, requireApproval bool) models.Forum {
	t.Helper()
	f := models.Forum{
		CategoryID:      categoryID,
		CreatedByID:     creatorID,
		Name:            name,
		IsActive:        true,
		RequireApproval: requireApproval,
	}
	require.NoError(t, db.Create(&f).Error)
	return f
}

func actorFor(u models.User) Actor {
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// fixture bundles the services and a seeded user/category/forum so tests
// don't repeat boot plumbing.
type fixture struct {
	db     *gorm.DB
	posts  *PostService
	forums *ForumService
	mod    *ModerationService
	report *ReportService

	admin  models.User
	member models.User
	other  models.User
	forum  models.Forum
}

func newFixture(t *testing.T, requireApproval bool) *fixture {
	t.Helper()
	db := openTestDB(t)
	opts := DefaultOptions()

	admin := seedUser(t, db, "admin", models.RoleAdmin)
	member := seedUser(t, db, "alice", models.RoleUser)
	other := seedUser(t, db, "bob", models.RoleUser)
	cat := seedCategory(t, db, "general")
	forum := seedForum(t, db, cat.ID, admin.ID, "go talk", requireApproval)

	return &fixture{
		db:     db,
		posts:  NewPostService(db, opts),
		forums: NewForumService(db),
		mod:    NewModerationService(db),
		report: NewReportService(db, opts),
		admin:  admin,
		member: member,
		other:  other,
		forum:  forum,
	}
}

func (f *fixture) createTopic(t *testing.T, author models.User) *models.Post {
	t.Helper()
	post, err := f.posts.CreateTopic(context.Background(), actorFor(author), CreateTopicInput{
		ForumID: f.forum.ID,
		Title:   "an interesting subject",
		Content: "this is the opening post of the thread",
	})
	require.NoError(t, err)
	return post
}

func (f *fixture) createReply(t *testing.T, author models.User, parentID uint) *models.Post {
	t.Helper()
	post, err := f.posts.CreateReply(context.Background(), actorFor(author), CreateReplyInput{
		ParentID: parentID,
		Content:  "a reply with enough content to pass validation",
	})
	require.NoError(t, err)
	return post
}

func (f *fixture) reloadForum(t *testing.T) models.Forum {
	t.Helper()
	var forum models.Forum
	require.NoError(t, f.db.First(&forum, f.forum.ID).Error)
	return forum
}

func (f *fixture) reloadPost(t *testing.T, id uint) models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, f.db.First(&post, id).Error)
	return post
}

// seedUniqueReporter creates a throwaway account for report fan-out tests.
func (f *fixture) seedUniqueReporter(t *testing.T, n int) models.User {
	t.Helper()
	return seedUser(t, f.db, fmt.Sprintf("reporter-%d", n), models.RoleUser)
}

// backdatePost shifts CreatedAt so edit-window expiry can be simulated.
func (f *fixture) backdatePost(t *testing.T, id uint, d time.Duration) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("created_at", time.Now().Add(-d)).Error)
}
