// Package metrics provides Prometheus metrics for conversation sync
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// AppendsTotal message appends by result (success, failure, empty)
	AppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_message_appends_total",
			Help: "Total number of message append attempts",
		},
		[]string{"result"},
	)

	// UploadsTotal attachment uploads by result
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_attachment_uploads_total",
			Help: "Total number of attachment uploads",
		},
		[]string{"result"},
	)

	// ReadReceiptsTotal messages marked read
	ReadReceiptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_read_receipts_total",
			Help: "Total number of messages marked as read",
		},
	)

	// ReactionConflictsTotal revision conflicts hit while toggling reactions
	ReactionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_reaction_conflicts_total",
			Help: "Total number of reaction compare-and-swap conflicts",
		},
	)

	// TypingSignalsTotal typing flag writes by value
	TypingSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_typing_signals_total",
			Help: "Total number of typing flag writes",
		},
		[]string{"value"},
	)

	// FeedResubscribesTotal snapshot feed resubscriptions after a dropped channel
	FeedResubscribesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_feed_resubscribes_total",
			Help: "Total number of snapshot feed resubscriptions",
		},
	)

	// ActiveSessions open chat sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_sessions",
			Help: "Number of chat sessions currently open",
		},
	)
)
