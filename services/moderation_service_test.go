package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

func TestApprovePendingPost(t *testing.T) {
	f := newFixture(t, true)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	post, err := f.mod.Approve(ctx, actorFor(f.admin), topic.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)
	assert.True(t, post.IsApproved)
	require.NotNil(t, post.ModeratedByID)
	assert.Equal(t, f.admin.ID, *post.ModeratedByID)

	// The topic is now visible to everyone.
	page, err := f.posts.ListTopics(ctx, actorFor(f.other), f.forum.ID, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestApproveIsIdempotentOnApproved(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member) // approved on create

	post, err := f.mod.Approve(context.Background(), actorFor(f.admin), topic.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)
}

func TestApproveRejectedIsTerminal(t *testing.T) {
	f := newFixture(t, true)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	_, err := f.mod.Reject(ctx, actorFor(f.admin), topic.ID, "off topic")
	require.NoError(t, err)

	_, err = f.mod.Approve(ctx, actorFor(f.admin), topic.ID)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestRejectHidesPostAndPropagates(t *testing.T) {
	f := newFixture(t, true)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	post, err := f.mod.Reject(ctx, actorFor(f.admin), topic.ID, "spam")
	require.NoError(t, err)
	assert.Equal(t, models.ModerationRejected, post.ModerationStatus)
	assert.False(t, post.IsActive)
	assert.Equal(t, "spam", post.ModerationReason)

	forum := f.reloadForum(t)
	assert.Equal(t, 0, forum.TopicCount)
	assert.Equal(t, 0, forum.PostCount)

	// Rejecting again is a no-op, counters stay put.
	_, err = f.mod.Reject(ctx, actorFor(f.admin), topic.ID, "spam again")
	require.NoError(t, err)
	forum = f.reloadForum(t)
	assert.Equal(t, 0, forum.PostCount)
}

func TestRejectApprovedPostConflicts(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member) // approved

	_, err := f.mod.Reject(context.Background(), actorFor(f.admin), topic.ID, "changed my mind")
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestModerationRequiresStaff(t *testing.T) {
	f := newFixture(t, true)
	topic := f.createTopic(t, f.member)

	_, err := f.mod.Approve(context.Background(), actorFor(f.other), topic.ID)
	assert.Equal(t, utils.KindForbidden, utils.KindOf(err))
}

func TestForumModeratorCanModerate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.forums.AddModerator(ctx, actorFor(f.admin), f.forum.ID, f.other.ID))

	topic := f.createTopic(t, f.member)
	post, err := f.mod.Approve(ctx, actorFor(f.other), topic.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)
}

func TestPinAndLockAdminOnly(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	err := f.mod.SetPinned(ctx, actorFor(f.member), topic.ID, true)
	assert.Equal(t, utils.KindForbidden, utils.KindOf(err))

	require.NoError(t, f.mod.SetPinned(ctx, actorFor(f.admin), topic.ID, true))
	require.NoError(t, f.mod.SetLocked(ctx, actorFor(f.admin), topic.ID, true))

	post := f.reloadPost(t, topic.ID)
	assert.True(t, post.IsPinned)
	assert.True(t, post.IsLocked)

	// Unlocking is the same idempotent toggle.
	require.NoError(t, f.mod.SetLocked(ctx, actorFor(f.admin), topic.ID, false))
	post = f.reloadPost(t, topic.ID)
	assert.False(t, post.IsLocked)
}

func TestResolveReportRemovesPost(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	filed, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "obvious spam")
	require.NoError(t, err)

	report, err := f.mod.ResolveReport(ctx, actorFor(f.admin), topic.ID, filed.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, report.Status)
	require.NotNil(t, report.ResolvedByID)
	assert.Equal(t, f.admin.ID, *report.ResolvedByID)
	assert.NotNil(t, report.ResolvedAt)

	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationRejected, post.ModerationStatus)
	assert.False(t, post.IsActive)
	assert.Equal(t, "content reported and removed", post.ModerationReason)

	forum := f.reloadForum(t)
	assert.Equal(t, 0, forum.PostCount)
}

func TestResolveReportTwiceConflicts(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	filed, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "")
	require.NoError(t, err)

	_, err = f.mod.ResolveReport(ctx, actorFor(f.admin), topic.ID, filed.ID, "")
	require.NoError(t, err)
	_, err = f.mod.ResolveReport(ctx, actorFor(f.admin), topic.ID, filed.ID, "")
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestDismissReportLeavesPostUntouched(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	filed, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonOther, "disagreement, not abuse")
	require.NoError(t, err)

	report, err := f.mod.DismissReport(ctx, actorFor(f.admin), topic.ID, filed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDismissed, report.Status)

	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)
	assert.True(t, post.IsActive)
}

func TestResolveFlaggedPostViaReport(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	var firstReport *models.Report
	for i := 0; i < 3; i++ {
		reporter := f.seedUniqueReporter(t, i)
		filed, err := f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonHarassment, "")
		require.NoError(t, err)
		if firstReport == nil {
			firstReport = filed
		}
	}

	post := f.reloadPost(t, topic.ID)
	require.Equal(t, models.ModerationFlagged, post.ModerationStatus)

	// Flagged posts leave the flagged state through report resolution.
	_, err := f.mod.ResolveReport(ctx, actorFor(f.admin), topic.ID, firstReport.ID, "confirmed harassment")
	require.NoError(t, err)
	post = f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationRejected, post.ModerationStatus)
	assert.False(t, post.IsActive)

	// Resolving one report settles only that report.
	var pending int64
	require.NoError(t, f.db.Model(&models.Report{}).
		Where("post_id = ? AND status = ?", topic.ID, models.ReportPending).
		Count(&pending).Error)
	assert.EqualValues(t, 2, pending)
}
