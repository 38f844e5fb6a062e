package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RyouhaWH/turnos-app-sub002/config"
	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/model"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
	"github.com/RyouhaWH/turnos-app-sub002/internal/roster"
	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/logger"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/metrics"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/whatsapp"
)

// RoleEmployee 员工本人作为接收人时的角色名
const RoleEmployee = "employee"

const defaultPollInterval = 5 * time.Second

// DispatchResult 一次提交产生的通知入队结果
type DispatchResult struct {
	BatchID string
	Jobs    int
}

// NotificationService 班次变更通知业务接口
//
// 提交只负责入队（Dispatch），投递由后台 worker（Run / ProcessDue）完成：
//   - pending → sent | retrying | failed；retrying → sent | retrying | failed
//   - 超过最大次数或不可重试的错误进入 failed 终态，不会回到 pending
type NotificationService interface {
	// Dispatch 按员工分组生成消息并为每个接收人写入一条任务
	Dispatch(ctx context.Context, year, month int, changes []roster.PendingChange) (*DispatchResult, error)
	// ProcessDue 领取一批到期任务并并发投递，返回处理条数
	ProcessDue(ctx context.Context) (int, error)
	// Run 按 poll_interval 循环 ProcessDue，直到 ctx 取消
	Run(ctx context.Context) error
	List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationJobResponse, int64, error)
}

type notificationService struct {
	cfg         *config.NotificationConfig
	placeholder string
	repo        *repository.Repository
	sender      whatsapp.Sender
	logger      *zap.Logger
	now         func() time.Time
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(
	cfg *config.NotificationConfig,
	placeholder string,
	repo *repository.Repository,
	sender whatsapp.Sender,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		cfg:         cfg,
		placeholder: placeholder,
		repo:        repo,
		sender:      sender,
		logger:      logger,
		now:         time.Now,
	}
}

// ────────────────────── Dispatch ──────────────────────

type outgoing struct {
	recipient  string
	role       string
	employeeID *string
	message    string
}

func (s *notificationService) Dispatch(ctx context.Context, year, month int, changes []roster.PendingChange) (*DispatchResult, error) {
	if !s.cfg.Enabled || len(changes) == 0 {
		return &DispatchResult{}, nil
	}

	groups := roster.GroupByEmployee(changes)
	phones := s.employeePhones(ctx, groups)

	var out []outgoing
	roles := s.sortedRoles()

	if s.cfg.Aggregate {
		msg := roster.ComposeAggregate(groups, year, month, s.placeholder)
		for _, role := range roles {
			out = append(out, outgoing{recipient: s.cfg.Recipients[role], role: role, message: msg})
		}
	}

	for _, g := range groups {
		msg := roster.ComposeMessage(g.EmployeeName, g.Changes, year, month, s.placeholder)
		empID := g.EmployeeID
		if !s.cfg.Aggregate {
			for _, role := range roles {
				out = append(out, outgoing{recipient: s.cfg.Recipients[role], role: role, employeeID: &empID, message: msg})
			}
		}
		if s.cfg.NotifyEmployee {
			if phone := phones[g.EmployeeID]; phone != "" {
				out = append(out, outgoing{recipient: phone, role: RoleEmployee, employeeID: &empID, message: msg})
			}
		}
	}

	out = dedupeOutgoing(out)
	if len(out) == 0 {
		s.logger.Info("无通知接收人，跳过入队", zap.Int("changes", len(changes)))
		return &DispatchResult{}, nil
	}

	batchID := uuid.NewString()
	now := s.now()
	jobs := make([]model.NotificationJob, 0, len(out))
	for _, o := range out {
		jobs = append(jobs, model.NotificationJob{
			BatchID:       batchID,
			Recipient:     o.recipient,
			RecipientRole: o.role,
			EmployeeID:    o.employeeID,
			Message:       o.message,
			Status:        model.NotificationPending,
			MaxAttempts:   s.cfg.MaxAttempts,
			NextAttemptAt: now,
		})
	}

	if err := s.repo.NotificationJob.CreateBatch(ctx, jobs); err != nil {
		s.logger.Error("通知任务入队失败", zap.String("batch_id", batchID), zap.Int("jobs", len(jobs)), zap.Error(err))
		return nil, err
	}
	for range jobs {
		metrics.IncrementNotification(model.NotificationPending)
	}

	s.logger.Info("通知任务已入队", zap.String("batch_id", batchID), zap.Int("jobs", len(jobs)))
	return &DispatchResult{BatchID: batchID, Jobs: len(jobs)}, nil
}

// employeePhones 查询员工手机号；失败只记录日志，角色接收人照常通知
func (s *notificationService) employeePhones(ctx context.Context, groups []roster.EmployeeChanges) map[string]string {
	phones := make(map[string]string)
	if !s.cfg.NotifyEmployee {
		return phones
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.EmployeeID)
	}
	emps, err := s.repo.Employee.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("查询员工手机号失败", zap.Error(err))
		return phones
	}
	for _, e := range emps {
		phones[e.EmployeeID] = model.StrVal(e.Phone)
	}
	return phones
}

func (s *notificationService) sortedRoles() []string {
	roles := make([]string, 0, len(s.cfg.Recipients))
	for role, phone := range s.cfg.Recipients {
		if phone != "" {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

// dedupeOutgoing 同一号码同一消息只发一次（例如员工本人也是值班主管）
func dedupeOutgoing(in []outgoing) []outgoing {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, o := range in {
		key := o.recipient + "\x00" + o.message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}

// ────────────────────── Worker ──────────────────────

func (s *notificationService) Run(ctx context.Context) error {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("通知 worker 已启动",
		zap.Duration("poll_interval", interval),
		zap.Int("workers", s.cfg.Workers),
	)

	for {
		if _, err := s.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("处理通知任务失败", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("通知 worker 已停止")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *notificationService) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := s.repo.NotificationJob.ClaimDue(ctx, s.now(), s.cfg.BatchSize, s.cfg.Lease)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			s.deliver(gctx, &job)
			return nil
		})
	}
	_ = g.Wait()
	return len(jobs), nil
}

// deliver 投递单条任务并写回状态
func (s *notificationService) deliver(ctx context.Context, job *model.NotificationJob) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	sendErr := s.sender.Send(callCtx, job.Recipient, job.Message)
	cancel()

	// 进程退出导致的中断不计入次数，租约到期后重新领取
	if sendErr != nil && ctx.Err() != nil {
		return
	}

	now := s.now()
	attempts := job.Attempts + 1
	t := repository.JobTransition{JobID: job.NotificationJobID, Attempts: attempts, At: now}

	if sendErr == nil {
		t.To = model.NotificationSent
	} else {
		retryable, kind := whatsapp.IsRetryable(sendErr)
		nerr := &pkgerrors.NotificationError{Recipient: job.Recipient, Attempt: attempts, Err: sendErr}
		t.LastError = logger.Truncate(sendErr.Error(), 900)

		if retryable && attempts < job.MaxAttempts {
			t.To = model.NotificationRetrying
			t.NextAttemptAt = now.Add(s.backoff(attempts))
			s.logger.Warn("通知投递失败，稍后重试",
				zap.String("job_id", job.NotificationJobID),
				zap.String("recipient", job.Recipient),
				zap.String("kind", kind),
				zap.Time("next_attempt_at", t.NextAttemptAt),
				zap.Error(nerr),
			)
		} else {
			t.To = model.NotificationFailed
			s.logger.Error("通知投递最终失败",
				zap.String("job_id", job.NotificationJobID),
				zap.String("recipient", job.Recipient),
				zap.String("message", logger.Truncate(job.Message, 80)),
				zap.String("kind", kind),
				zap.Bool("retryable", retryable),
				zap.Error(nerr),
			)
		}
	}

	// 投递结果已确定，写回不受关闭信号影响
	if err := s.repo.NotificationJob.Transition(context.WithoutCancel(ctx), t); err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidTransition) {
			s.logger.Warn("通知任务状态已变更，忽略本次结果", zap.String("job_id", job.NotificationJobID), zap.String("to", t.To))
			return
		}
		s.logger.Error("写回通知任务状态失败", zap.String("job_id", job.NotificationJobID), zap.Error(err))
		return
	}
	metrics.IncrementNotification(t.To)
}

// backoff 指数退避：base * 2^(attempt-1)，上限 max_backoff（为 0 时不设上限）
func (s *notificationService) backoff(attempt int) time.Duration {
	d := s.cfg.BaseBackoff
	capped := s.cfg.MaxBackoff > 0
	for i := 1; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			return d
		}
		d *= 2
		if capped && d >= s.cfg.MaxBackoff {
			return s.cfg.MaxBackoff
		}
	}
	if capped && d > s.cfg.MaxBackoff {
		return s.cfg.MaxBackoff
	}
	return d
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationJobResponse, int64, error) {
	jobs, total, err := s.repo.NotificationJob.List(ctx, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知任务失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationJobResponse, 0, len(jobs))
	for i := range jobs {
		result = append(result, toNotificationJobResponse(&jobs[i]))
	}
	return result, total, nil
}

func toNotificationJobResponse(j *model.NotificationJob) dto.NotificationJobResponse {
	return dto.NotificationJobResponse{
		ID:            j.NotificationJobID,
		BatchID:       j.BatchID,
		Recipient:     j.Recipient,
		RecipientRole: j.RecipientRole,
		EmployeeID:    j.EmployeeID,
		Message:       j.Message,
		Status:        j.Status,
		Attempts:      j.Attempts,
		MaxAttempts:   j.MaxAttempts,
		NextAttemptAt: j.NextAttemptAt.Format(time.RFC3339),
		LastError:     j.LastError,
		SentAt:        formatTimePtr(j.SentAt),
		FailedAt:      formatTimePtr(j.FailedAt),
		CreatedAt:     j.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
