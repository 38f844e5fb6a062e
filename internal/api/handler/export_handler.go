package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRoster 导出月度排班表
// GET /api/v1/export/roster?year=2025&month=3
func (h *ExportHandler) ExportRoster(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "year / month 参数无效")
		return
	}

	buf, filename, err := h.exportSvc.ExportRoster(c.Request.Context(), q.Year, q.Month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	setAttachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoEmployees):
		response.BadRequest(c, response.CodeExportEmpty, "暂无在职员工")
	default:
		response.InternalError(c)
	}
}

func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}
