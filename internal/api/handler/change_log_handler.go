package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

// ChangeLogHandler 班次变更日志 HTTP 处理器
type ChangeLogHandler struct {
	changeLogSvc service.ChangeLogService
}

// NewChangeLogHandler 创建 ChangeLogHandler
func NewChangeLogHandler(changeLogSvc service.ChangeLogService) *ChangeLogHandler {
	return &ChangeLogHandler{changeLogSvc: changeLogSvc}
}

// ListChangeLogs 分页查询变更日志
// GET /api/v1/shift-change-logs?employee_id=&year=&month=&page=&page_size=
func (h *ChangeLogHandler) ListChangeLogs(c *gin.Context) {
	var req dto.ShiftChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}
	if (req.Year == 0) != (req.Month == 0) {
		response.BadRequest(c, response.CodeInvalidParams, "year 与 month 需同时提供")
		return
	}

	list, total, err := h.changeLogSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeChangeLogQuery, "查询变更日志失败")
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Backfill 为历史日志补齐 shift_date
// POST /api/v1/shift-change-logs/backfill
func (h *ChangeLogHandler) Backfill(c *gin.Context) {
	resp, err := h.changeLogSvc.Backfill(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, resp)
}
