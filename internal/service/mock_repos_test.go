package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/RyouhaWH/turnos-app-sub002/internal/model"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
)

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct {
	employees map[string]*model.Employee
	listErr   error
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{employees: make(map[string]*model.Employee)}
}

func (m *mockEmployeeRepo) add(id, name, rut, phone string) {
	m.employees[id] = &model.Employee{EmployeeID: id, Name: name, Rut: rut, Phone: model.StrPtr(phone), IsActive: true}
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id string) (*model.Employee, error) {
	if e, ok := m.employees[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) ListActive(_ context.Context) ([]model.Employee, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Employee
	for _, e := range m.employees {
		if e.IsActive {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockEmployeeRepo) ListByIDs(_ context.Context, ids []string) ([]model.Employee, error) {
	var result []model.Employee
	for _, id := range ids {
		if e, ok := m.employees[id]; ok {
			result = append(result, *e)
		}
	}
	return result, nil
}

// ── Mock EmployeeShiftRepository ──

type mockEmployeeShiftRepo struct {
	mu     sync.Mutex
	shifts map[string]*model.EmployeeShift // "employeeID:yyyy-mm-dd" → shift
}

func newMockEmployeeShiftRepo() *mockEmployeeShiftRepo {
	return &mockEmployeeShiftRepo{shifts: make(map[string]*model.EmployeeShift)}
}

func shiftKey(employeeID string, date time.Time) string {
	return employeeID + ":" + date.Format("2006-01-02")
}

func (m *mockEmployeeShiftRepo) set(employeeID string, date time.Time, code string) *model.EmployeeShift {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := shiftKey(employeeID, date)
	sh, ok := m.shifts[k]
	if !ok {
		sh = &model.EmployeeShift{EmployeeShiftID: "es-" + k, EmployeeID: employeeID, ShiftDate: date}
		m.shifts[k] = sh
	}
	sh.Shift = code
	return sh
}

func (m *mockEmployeeShiftRepo) get(employeeID string, date time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sh, ok := m.shifts[shiftKey(employeeID, date)]; ok {
		return sh.Shift
	}
	return ""
}

func (m *mockEmployeeShiftRepo) ListByMonth(_ context.Context, year, month int) ([]model.EmployeeShift, error) {
	return m.filter("", year, month), nil
}

func (m *mockEmployeeShiftRepo) ListByEmployeeAndMonth(_ context.Context, employeeID string, year, month int) ([]model.EmployeeShift, error) {
	return m.filter(employeeID, year, month), nil
}

func (m *mockEmployeeShiftRepo) filter(employeeID string, year, month int) []model.EmployeeShift {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.EmployeeShift
	for _, sh := range m.shifts {
		if sh.ShiftDate.Year() != year || int(sh.ShiftDate.Month()) != month {
			continue
		}
		if employeeID != "" && sh.EmployeeID != employeeID {
			continue
		}
		result = append(result, *sh)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ShiftDate.Before(result[j].ShiftDate) })
	return result
}

// ── Mock ShiftChangeLogRepository ──

// mockShiftChangeLogRepo 模拟原子追加：appendErr 非空时不写入任何数据
type mockShiftChangeLogRepo struct {
	mu         sync.Mutex
	shifts     *mockEmployeeShiftRepo
	logs       []model.ShiftChangeLog
	appendErr  error
	strictSeen []bool
	backfilled int64

	afterAppend func() // 写入成功后回调，模拟提交后请求被取消
}

func newMockShiftChangeLogRepo(shifts *mockEmployeeShiftRepo) *mockShiftChangeLogRepo {
	return &mockShiftChangeLogRepo{shifts: shifts}
}

func (m *mockShiftChangeLogRepo) Append(_ context.Context, entries []repository.ShiftChangeEntry, strict bool) ([]model.ShiftChangeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strictSeen = append(m.strictSeen, strict)

	if m.appendErr != nil {
		return nil, m.appendErr
	}
	if strict {
		for _, e := range entries {
			if m.shifts.get(e.EmployeeID, e.ShiftDate) != e.OldShift {
				return nil, pkgerrors.ErrOptimisticLock
			}
		}
	}

	var out []model.ShiftChangeLog
	for _, e := range entries {
		sh := m.shifts.set(e.EmployeeID, e.ShiftDate, e.NewShift)
		date := e.ShiftDate
		id := sh.EmployeeShiftID
		out = append(out, model.ShiftChangeLog{
			ShiftChangeLogID: fmt.Sprintf("log-%d", len(m.logs)+len(out)+1),
			EmployeeID:       e.EmployeeID,
			EmployeeShiftID:  &id,
			ChangedBy:        model.StrPtr(e.ChangedBy),
			OldShift:         model.StrPtr(e.OldShift),
			NewShift:         e.NewShift,
			Comment:          model.StrPtr(e.Comment),
			ShiftDate:        &date,
			ChangedAt:        e.ChangedAt,
		})
	}
	m.logs = append(m.logs, out...)
	if m.afterAppend != nil {
		m.afterAppend()
	}
	return out, nil
}

func (m *mockShiftChangeLogRepo) BackfillMissingDates(_ context.Context) (int64, error) {
	return m.backfilled, nil
}

func (m *mockShiftChangeLogRepo) List(_ context.Context, filter repository.ShiftChangeLogFilter, offset, limit int) ([]model.ShiftChangeLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.ShiftChangeLog
	for _, l := range m.logs {
		if filter.EmployeeID != "" && l.EmployeeID != filter.EmployeeID {
			continue
		}
		matched = append(matched, l)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// ── Mock NotificationJobRepository ──

type mockNotificationJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*model.NotificationJob
	order     []string
	createErr error
}

func newMockNotificationJobRepo() *mockNotificationJobRepo {
	return &mockNotificationJobRepo{jobs: make(map[string]*model.NotificationJob)}
}

func (m *mockNotificationJobRepo) CreateBatch(ctx context.Context, jobs []model.NotificationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for i := range jobs {
		id := fmt.Sprintf("job-%d", len(m.order)+1)
		jobs[i].NotificationJobID = id
		j := jobs[i]
		m.jobs[id] = &j
		m.order = append(m.order, id)
	}
	return nil
}

func (m *mockNotificationJobRepo) ClaimDue(_ context.Context, now time.Time, limit int, lease time.Duration) ([]model.NotificationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.NotificationJob
	for _, id := range m.order {
		j := m.jobs[id]
		if j.Status != model.NotificationPending && j.Status != model.NotificationRetrying {
			continue
		}
		if j.NextAttemptAt.After(now) {
			continue
		}
		if j.LockedUntil != nil && !j.LockedUntil.Before(now) {
			continue
		}
		until := now.Add(lease)
		j.LockedUntil = &until
		result = append(result, *j)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockNotificationJobRepo) Transition(_ context.Context, t repository.JobTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[t.JobID]
	if !ok || !model.CanTransition(j.Status, t.To) {
		return pkgerrors.ErrInvalidTransition
	}
	j.Status = t.To
	j.Attempts = t.Attempts
	j.LockedUntil = nil
	switch t.To {
	case model.NotificationSent:
		at := t.At
		j.SentAt = &at
	case model.NotificationRetrying:
		j.NextAttemptAt = t.NextAttemptAt
		j.LastError = model.StrPtr(t.LastError)
	case model.NotificationFailed:
		at := t.At
		j.FailedAt = &at
		j.LastError = model.StrPtr(t.LastError)
	}
	return nil
}

func (m *mockNotificationJobRepo) List(_ context.Context, status string, offset, limit int) ([]model.NotificationJob, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.NotificationJob
	for _, id := range m.order {
		if status == "" || m.jobs[id].Status == status {
			matched = append(matched, *m.jobs[id])
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockNotificationJobRepo) all() []model.NotificationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.NotificationJob, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.jobs[id])
	}
	return result
}

// ── Mock whatsapp.Sender ──

type sentMessage struct {
	phone   string
	message string
}

type mockSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	errFn func(phone string) error
}

func (m *mockSender) Send(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errFn != nil {
		if err := m.errFn(phone); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, sentMessage{phone: phone, message: message})
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ── 测试辅助 ──

type testRepos struct {
	employees *mockEmployeeRepo
	shifts    *mockEmployeeShiftRepo
	logs      *mockShiftChangeLogRepo
	jobs      *mockNotificationJobRepo
}

func newTestRepository() (*repository.Repository, *testRepos) {
	shifts := newMockEmployeeShiftRepo()
	m := &testRepos{
		employees: newMockEmployeeRepo(),
		shifts:    shifts,
		logs:      newMockShiftChangeLogRepo(shifts),
		jobs:      newMockNotificationJobRepo(),
	}
	repo := &repository.Repository{
		Employee:        m.employees,
		EmployeeShift:   m.shifts,
		ShiftChangeLog:  m.logs,
		NotificationJob: m.jobs,
	}
	return repo, m
}
