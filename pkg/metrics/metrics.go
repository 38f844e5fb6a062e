package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 排班提交次数
	RosterCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turnos_roster_commits_total",
			Help: "Total number of roster commits",
		},
		[]string{"status"}, // status: success, failed, conflict
	)

	// 每次提交写入的变更条数
	RosterCommitSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "turnos_roster_commit_changes",
			Help:    "Number of shift changes persisted per commit",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)

	// 通知任务状态流转计数
	NotificationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turnos_notification_transitions_total",
			Help: "Notification job state transitions",
		},
		[]string{"status"}, // status: pending, retrying, sent, failed
	)

	// WhatsApp 网关调用延迟（毫秒）
	TransportLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "turnos_whatsapp_latency_ms",
			Help:    "WhatsApp transport call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"status"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "turnos_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 编辑会话操作计数
	SessionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turnos_roster_session_operations_total",
			Help: "Roster editing session operations",
		},
		[]string{"op"}, // op: open, register, undo, clear, close
	)
)

// IncrementRosterCommit 增加提交计数
func IncrementRosterCommit(status string) {
	RosterCommits.WithLabelValues(status).Inc()
}

// ObserveCommitSize 记录提交条数
func ObserveCommitSize(n int) {
	RosterCommitSize.Observe(float64(n))
}

// IncrementNotification 记录通知状态流转
func IncrementNotification(status string) {
	NotificationTransitions.WithLabelValues(status).Inc()
}

// IncrementSessionOp 记录会话操作
func IncrementSessionOp(op string) {
	SessionOperations.WithLabelValues(op).Inc()
}

// RecordTransportLatency 记录网关调用延迟
func RecordTransportLatency(status string, duration time.Duration) {
	TransportLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
