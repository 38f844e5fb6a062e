package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

// CalendarHandler 员工个人日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// EmployeeCalendar 下载员工当月排班 .ics
// GET /api/v1/employees/:id/calendar.ics?year=2025&month=3
func (h *CalendarHandler) EmployeeCalendar(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "year / month 参数无效")
		return
	}

	data, filename, err := h.calendarSvc.EmployeeCalendar(c.Request.Context(), c.Param("id"), q.Year, q.Month)
	if err != nil {
		if errors.Is(err, service.ErrEmployeeNotFound) {
			response.NotFound(c, response.CodeEmployeeNotFound, "员工不存在")
			return
		}
		response.InternalError(c)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}
