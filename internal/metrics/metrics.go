// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArticleHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkblog",
		Name:      "article_hits_total",
		Help:      "Article views by outcome (recorded for a new IP, duplicate otherwise).",
	}, []string{"result"})

	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkblog",
		Name:      "comments_total",
		Help:      "Comments created, by thread position.",
	}, []string{"kind"})

	CommentNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkblog",
		Name:      "comment_notifications_total",
		Help:      "Comment notification deliveries by recipient role and result.",
	}, []string{"role", "result"})

	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkblog",
		Name:      "reactions_total",
		Help:      "Reaction mutations by type (like, dislike, none for cleared).",
	}, []string{"type"})

	Flags = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkblog",
		Name:      "flags_total",
		Help:      "Flag events: raised, removed, rejected, resolved.",
	}, []string{"event"})
)
