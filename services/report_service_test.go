package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/utils"
)

func TestFileReportStoresPendingReport(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)

	report, err := f.report.FileReport(context.Background(), actorFor(f.other), topic.ID, models.ReasonSpam, "selling crypto")
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)
	assert.Equal(t, f.other.ID, report.ReporterID)
	assert.Equal(t, "selling crypto", report.Description)

	// One report is below the threshold; the post is untouched.
	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)
}

func TestFileReportDuplicateConflicts(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	_, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "")
	require.NoError(t, err)
	_, err = f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonHarassment, "")
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestFileReportValidation(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	_, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReportReason("nonsense"), "")
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	_, err = f.report.FileReport(ctx, actorFor(f.member), topic.ID, models.ReasonSpam, "")
	assert.Equal(t, utils.KindValidation, utils.KindOf(err)) // own post
}

func TestEscalationAtThreshold(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	// Two reports: still approved.
	for i := 0; i < 2; i++ {
		reporter := f.seedUniqueReporter(t, i)
		_, err := f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonSpam, "")
		require.NoError(t, err)
	}
	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)

	// The third pending report flips the post to flagged.
	reporter := f.seedUniqueReporter(t, 2)
	_, err := f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonSpam, "")
	require.NoError(t, err)
	post = f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationFlagged, post.ModerationStatus)
	// Flagged posts stay visible until a moderator decides.
	assert.True(t, post.IsActive)
}

func TestConcurrentFilingsEscalateExactlyOnce(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	const filers = 6
	reporters := make([]models.User, filers)
	for i := range reporters {
		reporters[i] = f.seedUniqueReporter(t, i)
	}

	var wg sync.WaitGroup
	errs := make(chan error, filers)
	for i := 0; i < filers; i++ {
		wg.Add(1)
		go func(reporter models.User) {
			defer wg.Done()
			_, err := f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonSpam, "")
			errs <- err
		}(reporters[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Filings serialize on the post row, so no filing is lost: all six
	// land pending and the threshold flip happens on the way.
	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationFlagged, post.ModerationStatus)

	var pending int64
	require.NoError(t, f.db.Model(&models.Report{}).
		Where("post_id = ? AND status = ?", topic.ID, models.ReportPending).
		Count(&pending).Error)
	assert.EqualValues(t, filers, pending)
}

func TestConcurrentDuplicateFilingsOneWins(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var conflicts int
	for err := range errs {
		if err != nil {
			assert.Equal(t, utils.KindConflict, utils.KindOf(err))
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	var count int64
	require.NoError(t, f.db.Model(&models.Report{}).
		Where("post_id = ? AND reporter_id = ?", topic.ID, f.other.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDismissalsDoNotCountTowardThreshold(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		reporter := f.seedUniqueReporter(t, i)
		filed, err := f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonSpam, "")
		require.NoError(t, err)
		_, err = f.mod.DismissReport(ctx, actorFor(f.admin), topic.ID, filed.ID)
		require.NoError(t, err)
	}

	// Third report, but only one pending: no escalation.
	reporter := f.seedUniqueReporter(t, 2)
	_, err := f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonSpam, "")
	require.NoError(t, err)
	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationApproved, post.ModerationStatus)
}

func TestEscalationNeverResurrectsRejectedPost(t *testing.T) {
	f := newFixture(t, true)
	topic := f.createTopic(t, f.member) // pending
	ctx := context.Background()

	_, err := f.mod.Reject(ctx, actorFor(f.admin), topic.ID, "spam")
	require.NoError(t, err)

	// A rejected post is inactive; reporting it yields not-found.
	_, err = f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))

	post := f.reloadPost(t, topic.ID)
	assert.Equal(t, models.ModerationRejected, post.ModerationStatus)
}

func TestListReportsStaffOnly(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	_, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "")
	require.NoError(t, err)

	_, _, err = f.report.ListReports(ctx, actorFor(f.other), topic.ID, "", 1, 20)
	assert.Equal(t, utils.KindForbidden, utils.KindOf(err))

	reports, total, err := f.report.ListReports(ctx, actorFor(f.admin), topic.ID, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reports, 1)
	assert.Equal(t, f.other.Username, reports[0].Reporter.Username)
}

func TestListReportsStatusFilter(t *testing.T) {
	f := newFixture(t, false)
	topic := f.createTopic(t, f.member)
	ctx := context.Background()

	filed, err := f.report.FileReport(ctx, actorFor(f.other), topic.ID, models.ReasonSpam, "")
	require.NoError(t, err)
	reporter := f.seedUniqueReporter(t, 0)
	_, err = f.report.FileReport(ctx, actorFor(reporter), topic.ID, models.ReasonOther, "")
	require.NoError(t, err)
	_, err = f.mod.DismissReport(ctx, actorFor(f.admin), topic.ID, filed.ID)
	require.NoError(t, err)

	pending, total, err := f.report.ListReports(ctx, actorFor(f.admin), topic.ID, "pending", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, models.ReportPending, pending[0].Status)

	_, _, err = f.report.ListReports(ctx, actorFor(f.admin), topic.ID, "bogus", 1, 20)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
}
