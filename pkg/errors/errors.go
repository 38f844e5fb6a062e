package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：单元格已被其他会话修改
// 仅在 roster.strict_concurrency 开启时由提交流程返回
var ErrOptimisticLock = errors.New("班次已被其他操作修改，请刷新后重试")

// ErrInvalidTransition 通知任务状态流转非法（例如 failed → pending）
var ErrInvalidTransition = errors.New("通知任务状态流转非法")

// ValidationError 输入校验失败：未知员工 / 日期越界 / 非法班次代码
// 在进入待提交列表前拒绝，不触达持久层
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidation 创建 ValidationError
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError 批量写入失败，整次提交回滚，待提交列表保持不变
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化失败 (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError 通知投递失败，仅记录日志并按队列策略重试
type NotificationError struct {
	Recipient string
	Attempt   int
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("通知投递失败 (recipient=%s attempt=%d): %v", e.Recipient, e.Attempt, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// IsValidation 判断错误链中是否含 ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence 判断错误链中是否含 PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
