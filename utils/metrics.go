package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine counters exposed on /metrics. Moderation actions are labeled by
// action name (approve, reject, pin, lock, resolve_report, dismiss_report).
var (
	MetricTopicsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumkit_topics_created_total",
		Help: "Topics created.",
	})
	MetricRepliesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumkit_replies_created_total",
		Help: "Replies created.",
	})
	MetricPostsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumkit_posts_deleted_total",
		Help: "Posts soft-deleted.",
	})
	MetricReportsFiled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumkit_reports_filed_total",
		Help: "Abuse reports filed.",
	})
	MetricReportsEscalated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumkit_reports_escalated_total",
		Help: "Posts auto-flagged by the report threshold.",
	})
	MetricModerationActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forumkit_moderation_actions_total",
		Help: "Moderation actions by name.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(
		MetricTopicsCreated,
		MetricRepliesCreated,
		MetricPostsDeleted,
		MetricReportsFiled,
		MetricReportsEscalated,
		MetricModerationActions,
	)
}
