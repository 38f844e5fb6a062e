package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/config"
	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/model"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
	"github.com/RyouhaWH/turnos-app-sub002/internal/roster"
	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/metrics"
)

// ── 排班编辑模块业务错误 ──

var (
	ErrNothingToCommit = errors.New("没有待提交的变更")
	ErrCommitConflict  = errors.New("班次已被其他会话修改，请重新打开排班表")
)

// RosterService 月度排班表编辑业务接口
//
// 会话生命周期：Open → (RegisterChange | UndoLast | Undo | ClearAll)* → Commit → ... → Close
//   - 同一会话的操作按会话 ID 串行执行，不同会话互不影响
//   - Commit：分类 → 原子写入班次与日志 → 清空待提交列表 → 通知入队
//   - 持久化失败时待提交列表保持不变，用户可直接重试
type RosterService interface {
	Open(ctx context.Context, req *dto.OpenSessionRequest, callerID string) (*dto.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	RegisterChange(ctx context.Context, sessionID string, req *dto.RegisterChangeRequest) (*dto.RegisterChangeResponse, error)
	UndoLast(ctx context.Context, sessionID string) (*dto.UndoResponse, error)
	Undo(ctx context.Context, sessionID, changeID string) (*dto.UndoResponse, error)
	ClearAll(ctx context.Context, sessionID string) (*dto.ClearResponse, error)
	Commit(ctx context.Context, sessionID string, req *dto.CommitRequest, callerID string) (*dto.CommitResponse, error)
	Close(ctx context.Context, sessionID string) error
}

type rosterService struct {
	cfg        *config.RosterConfig
	repo       *repository.Repository
	store      SessionStore
	notifier   NotificationService
	vocab      *roster.Vocabulary
	classifier *roster.Classifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(
	cfg *config.RosterConfig,
	repo *repository.Repository,
	store SessionStore,
	notifier NotificationService,
	logger *zap.Logger,
) RosterService {
	vocab := roster.VocabularyFromConfig(cfg)
	return &rosterService{
		cfg:        cfg,
		repo:       repo,
		store:      store,
		notifier:   notifier,
		vocab:      vocab,
		classifier: roster.NewClassifier(vocab),
		logger:     logger,
		now:        time.Now,
	}
}

// lock 按会话 ID 加锁，返回解锁函数；跨实例互斥由 SessionStore 保证
func (s *rosterService) lock(ctx context.Context, sessionID string) (func(), error) {
	unlock, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionBusy) {
			s.logger.Warn("等待会话锁超时", zap.String("session_id", sessionID))
		}
		return nil, err
	}
	return unlock, nil
}

// ────────────────────── Open ──────────────────────

func (s *rosterService) Open(ctx context.Context, req *dto.OpenSessionRequest, callerID string) (*dto.SessionResponse, error) {
	employees, err := s.repo.Employee.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询员工失败", zap.Error(err))
		return nil, err
	}

	rows := make([]roster.Employee, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, roster.Employee{ID: e.EmployeeID, Name: e.Name, Rut: e.Rut, Phone: model.StrVal(e.Phone)})
	}
	grid, err := roster.NewGrid(req.Year, req.Month, rows)
	if err != nil {
		return nil, err
	}

	shifts, err := s.repo.EmployeeShift.ListByMonth(ctx, req.Year, req.Month)
	if err != nil {
		s.logger.Error("查询月度班次失败", zap.Int("year", req.Year), zap.Int("month", req.Month), zap.Error(err))
		return nil, err
	}
	for _, sh := range shifts {
		// 离职员工的历史班次不进入网格
		if _, ok := grid.Employee(sh.EmployeeID); ok {
			grid.Set(sh.EmployeeID, sh.ShiftDate.Day(), sh.Shift)
		}
	}

	now := s.now()
	sess := &RosterSession{
		ID:        uuid.NewString(),
		OpenedBy:  callerID,
		OpenedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		State:     roster.NewTracker(grid, s.vocab).Snapshot(),
	}
	if err := s.store.Save(ctx, sess, s.cfg.SessionTTL); err != nil {
		s.logger.Error("保存编辑会话失败", zap.Error(err))
		return nil, err
	}
	metrics.IncrementSessionOp("open")

	s.logger.Info("打开排班编辑会话",
		zap.String("session_id", sess.ID),
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.Int("employees", len(rows)),
	)

	tracker, err := roster.Restore(sess.State, s.vocab)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(sess, tracker), nil
}

// ────────────────────── Get ──────────────────────

func (s *rosterService) Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	sess, tracker, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(sess, tracker), nil
}

// ────────────────────── RegisterChange ──────────────────────

func (s *rosterService) RegisterChange(ctx context.Context, sessionID string, req *dto.RegisterChangeRequest) (*dto.RegisterChangeResponse, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, tracker, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	change, tracked, err := tracker.Register(req.EmployeeID, req.Day, req.NewValue)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess, tracker); err != nil {
		return nil, err
	}
	metrics.IncrementSessionOp("register")

	resp := &dto.RegisterChangeResponse{Tracked: tracked, Pending: tracker.Len()}
	if tracked {
		c := s.toPendingChangeResponse(tracker.Grid(), change)
		resp.Change = &c
	}
	return resp, nil
}

// ────────────────────── Undo ──────────────────────

func (s *rosterService) UndoLast(ctx context.Context, sessionID string) (*dto.UndoResponse, error) {
	return s.undo(ctx, sessionID, func(t *roster.Tracker) (roster.PendingChange, bool) {
		return t.UndoLast()
	})
}

func (s *rosterService) Undo(ctx context.Context, sessionID, changeID string) (*dto.UndoResponse, error) {
	return s.undo(ctx, sessionID, func(t *roster.Tracker) (roster.PendingChange, bool) {
		return t.Undo(changeID)
	})
}

func (s *rosterService) undo(ctx context.Context, sessionID string, fn func(*roster.Tracker) (roster.PendingChange, bool)) (*dto.UndoResponse, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, tracker, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	undone, ok := fn(tracker)
	resp := &dto.UndoResponse{Pending: tracker.Len()}
	if !ok {
		return resp, nil
	}
	if err := s.save(ctx, sess, tracker); err != nil {
		return nil, err
	}
	metrics.IncrementSessionOp("undo")

	c := s.toPendingChangeResponse(tracker.Grid(), undone)
	resp.Undone = &c
	return resp, nil
}

// ────────────────────── ClearAll ──────────────────────

func (s *rosterService) ClearAll(ctx context.Context, sessionID string) (*dto.ClearResponse, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, tracker, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	n := tracker.ClearAll()
	if n > 0 {
		if err := s.save(ctx, sess, tracker); err != nil {
			return nil, err
		}
	}
	metrics.IncrementSessionOp("clear")
	return &dto.ClearResponse{Cleared: n}, nil
}

// ────────────────────── Commit ──────────────────────

func (s *rosterService) Commit(ctx context.Context, sessionID string, req *dto.CommitRequest, callerID string) (*dto.CommitResponse, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, tracker, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pending := tracker.Pending()
	if len(pending) == 0 {
		return nil, ErrNothingToCommit
	}

	// 1. 分类：只决定是否通知，所有变更都写日志
	notifiable := s.classifier.FilterNotifiable(pending)

	// 2. 原子持久化
	changedBy := ""
	if _, err := uuid.Parse(callerID); err == nil {
		changedBy = callerID
	}
	comment := ""
	if req != nil {
		comment = req.Comment
	}
	grid := tracker.Grid()
	entries := make([]repository.ShiftChangeEntry, 0, len(pending))
	for _, c := range pending {
		entries = append(entries, repository.ShiftChangeEntry{
			EmployeeID: c.EmployeeID,
			ShiftDate:  grid.Date(c.Day, time.UTC),
			OldShift:   c.OldValue,
			NewShift:   c.NewValue,
			ChangedBy:  changedBy,
			Comment:    comment,
			ChangedAt:  c.Timestamp,
		})
	}

	if _, err := s.repo.ShiftChangeLog.Append(ctx, entries, s.cfg.StrictConcurrency); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			metrics.IncrementRosterCommit("conflict")
			s.logger.Warn("提交冲突，待提交列表保留", zap.String("session_id", sessionID), zap.Int("pending", len(pending)))
			return nil, &pkgerrors.PersistenceError{Op: "append", Err: fmt.Errorf("%w: %w", ErrCommitConflict, err)}
		}
		metrics.IncrementRosterCommit("failed")
		s.logger.Error("提交排班变更失败，待提交列表保留",
			zap.String("session_id", sessionID),
			zap.Int("pending", len(pending)),
			zap.Error(err),
		)
		return nil, &pkgerrors.PersistenceError{Op: "append", Err: err}
	}
	metrics.IncrementRosterCommit("success")
	metrics.ObserveCommitSize(len(pending))

	// 已落库：后续步骤不再受请求取消影响，否则通知会丢失
	committedCtx := context.WithoutCancel(ctx)

	// 3. 清空待提交列表，网格保留新值
	tracker.Confirm()
	if err := s.save(committedCtx, sess, tracker); err != nil {
		// 丢弃会话避免重复提交，用户需重新打开
		s.logger.Error("提交后保存会话失败，会话已失效", zap.String("session_id", sessionID), zap.Error(err))
		_ = s.store.Delete(committedCtx, sessionID)
	}

	s.logger.Info("排班变更已提交",
		zap.String("session_id", sessionID),
		zap.String("changed_by", callerID),
		zap.Int("persisted", len(pending)),
		zap.Int("notifiable", len(notifiable)),
	)

	// 4. 通知入队：失败不影响提交结果
	resp := &dto.CommitResponse{Persisted: len(pending), Notifiable: len(notifiable)}
	if len(notifiable) > 0 {
		result, err := s.notifier.Dispatch(committedCtx, grid.Year, grid.Month, notifiable)
		if err != nil {
			s.logger.Error("通知入队失败", zap.String("session_id", sessionID), zap.Error(err))
		} else {
			resp.Notifications = result.Jobs
			resp.BatchID = result.BatchID
		}
	}
	return resp, nil
}

// ────────────────────── Close ──────────────────────

func (s *rosterService) Close(ctx context.Context, sessionID string) error {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.store.Load(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Error("删除编辑会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	metrics.IncrementSessionOp("close")
	return nil
}

// ── 辅助函数 ──

func (s *rosterService) load(ctx context.Context, sessionID string) (*RosterSession, *roster.Tracker, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			s.logger.Error("读取编辑会话失败", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, nil, err
	}
	tracker, err := roster.Restore(sess.State, s.vocab)
	if err != nil {
		s.logger.Error("恢复编辑会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, nil, err
	}
	return sess, tracker, nil
}

// save 写回快照并续期
func (s *rosterService) save(ctx context.Context, sess *RosterSession, tracker *roster.Tracker) error {
	sess.State = tracker.Snapshot()
	sess.ExpiresAt = s.now().Add(s.cfg.SessionTTL)
	if err := s.store.Save(ctx, sess, s.cfg.SessionTTL); err != nil {
		s.logger.Error("保存编辑会话失败", zap.String("session_id", sess.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *rosterService) toSessionResponse(sess *RosterSession, tracker *roster.Tracker) *dto.SessionResponse {
	grid := tracker.Grid()
	rows := make([]dto.EmployeeRow, 0, len(grid.Employees))
	for _, e := range grid.Employees {
		cells := make(map[int]string, len(grid.Cells[e.ID]))
		for d, v := range grid.Cells[e.ID] {
			cells[d] = v
		}
		rows = append(rows, dto.EmployeeRow{ID: e.ID, Name: e.Name, Rut: e.Rut, Cells: cells})
	}

	pending := tracker.Pending()
	changes := make([]dto.PendingChangeResponse, 0, len(pending))
	for _, c := range pending {
		changes = append(changes, s.toPendingChangeResponse(grid, c))
	}

	return &dto.SessionResponse{
		ID:          sess.ID,
		Year:        grid.Year,
		Month:       grid.Month,
		DaysInMonth: grid.DaysInMonth(),
		OpenedBy:    sess.OpenedBy,
		OpenedAt:    sess.OpenedAt.Format(time.RFC3339),
		ExpiresAt:   sess.ExpiresAt.Format(time.RFC3339),
		Employees:   rows,
		Pending:     changes,
	}
}

func (s *rosterService) toPendingChangeResponse(grid *roster.Grid, c roster.PendingChange) dto.PendingChangeResponse {
	return dto.PendingChangeResponse{
		ID:           c.ID,
		EmployeeID:   c.EmployeeID,
		EmployeeName: c.EmployeeName,
		EmployeeRut:  c.EmployeeRut,
		Day:          c.Day,
		Date:         grid.Date(c.Day, time.UTC).Format("02-01-2006"),
		OldValue:     c.OldValue,
		NewValue:     c.NewValue,
		Notifiable:   s.classifier.IsNotifiable(c),
		Timestamp:    c.Timestamp.Format(time.RFC3339),
	}
}
