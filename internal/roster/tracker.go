package roster

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
)

// PendingChange 会话内尚未提交的单元格变更
// OldValue 在该单元格第一次被编辑时确定，之后不再改写
type PendingChange struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	EmployeeRut  string    `json:"employee_rut"`
	Day          int       `json:"day"`
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	Timestamp    time.Time `json:"timestamp"`
	Seq          int64     `json:"seq"`
}

type cellKey struct {
	employeeID string
	day        int
}

// Snapshot 可序列化的追踪器状态（用于会话存储）
type Snapshot struct {
	Grid    *Grid           `json:"grid"`
	Changes []PendingChange `json:"changes"`
	Seq     int64           `json:"seq"`
}

// Tracker 待提交变更列表
//
// changes 按首次登记顺序排列，index 以 (employeeID, day) 定位；
// 更新时整体替换元素，不原地修改已返回给调用方的值。
type Tracker struct {
	grid    *Grid
	vocab   *Vocabulary
	changes []PendingChange
	index   map[cellKey]int
	seq     int64

	now   func() time.Time
	newID func() string
}

// TrackerOption 追踪器可选项
type TrackerOption func(*Tracker)

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator 注入 ID 生成器（测试用）
func WithIDGenerator(gen func() string) TrackerOption {
	return func(t *Tracker) { t.newID = gen }
}

// NewTracker 基于网格创建空追踪器
func NewTracker(grid *Grid, vocab *Vocabulary, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		grid:  grid,
		vocab: vocab,
		index: make(map[cellKey]int),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore 从快照恢复追踪器
func Restore(s Snapshot, vocab *Vocabulary, opts ...TrackerOption) (*Tracker, error) {
	if s.Grid == nil {
		return nil, fmt.Errorf("roster: snapshot without grid")
	}
	s.Grid.reindex()
	t := NewTracker(s.Grid, vocab, opts...)
	t.seq = s.Seq
	for _, c := range s.Changes {
		k := cellKey{c.EmployeeID, c.Day}
		if _, dup := t.index[k]; dup {
			return nil, fmt.Errorf("roster: duplicate pending change for %s day %d", c.EmployeeID, c.Day)
		}
		t.changes = append(t.changes, c)
		t.index[k] = len(t.changes) - 1
		if c.Seq > t.seq {
			t.seq = c.Seq
		}
	}
	return t, nil
}

// Snapshot 导出当前状态（深拷贝）
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Grid:    t.grid.Clone(),
		Changes: t.Pending(),
		Seq:     t.seq,
	}
}

// Grid 当前网格（含未提交的编辑）
func (t *Tracker) Grid() *Grid { return t.grid }

// Pending 待提交列表的副本，按首次登记顺序
func (t *Tracker) Pending() []PendingChange {
	out := make([]PendingChange, len(t.changes))
	copy(out, t.changes)
	return out
}

// Len 待提交条数
func (t *Tracker) Len() int { return len(t.changes) }

// Register 登记一次单元格编辑
//
// 返回值 tracked 表示登记后该单元格是否仍在待提交列表中：
// 手动改回原值或首次编辑即等于当前值时为 false。
func (t *Tracker) Register(employeeID string, day int, newValue string) (PendingChange, bool, error) {
	if err := t.grid.CheckCell(employeeID, day); err != nil {
		return PendingChange{}, false, err
	}
	if !t.vocab.Valid(newValue) {
		return PendingChange{}, false, pkgerrors.NewValidation("new_value", fmt.Sprintf("未知班次代码 %q", newValue))
	}

	key := cellKey{employeeID, day}
	now := t.now()

	if i, ok := t.index[key]; ok {
		updated := t.changes[i]
		updated.NewValue = newValue
		updated.Timestamp = now
		updated.Seq = t.nextSeq()
		t.grid.Set(employeeID, day, newValue)

		if updated.NewValue == updated.OldValue {
			t.removeAt(i)
			return updated, false, nil
		}
		t.changes[i] = updated
		return updated, true, nil
	}

	current := t.grid.Get(employeeID, day)
	if current == newValue {
		return PendingChange{}, false, nil
	}

	emp, _ := t.grid.Employee(employeeID)
	change := PendingChange{
		ID:           t.newID(),
		EmployeeID:   employeeID,
		EmployeeName: emp.Name,
		EmployeeRut:  emp.Rut,
		Day:          day,
		OldValue:     current,
		NewValue:     newValue,
		Timestamp:    now,
		Seq:          t.nextSeq(),
	}
	t.grid.Set(employeeID, day, newValue)
	t.changes = append(t.changes, change)
	t.index[key] = len(t.changes) - 1
	return change, true, nil
}

// UndoLast 撤销最近一次登记的变更并还原单元格
func (t *Tracker) UndoLast() (PendingChange, bool) {
	if len(t.changes) == 0 {
		return PendingChange{}, false
	}
	last := 0
	for i := 1; i < len(t.changes); i++ {
		if t.after(t.changes[i], t.changes[last]) {
			last = i
		}
	}
	return t.revertAt(last), true
}

// Undo 按 ID 撤销一条变更，不存在时为空操作
func (t *Tracker) Undo(changeID string) (PendingChange, bool) {
	for i, c := range t.changes {
		if c.ID == changeID {
			return t.revertAt(i), true
		}
	}
	return PendingChange{}, false
}

// ClearAll 丢弃全部变更并还原所有单元格，返回被撤销的条数
func (t *Tracker) ClearAll() int {
	n := len(t.changes)
	for _, c := range t.changes {
		t.grid.Set(c.EmployeeID, c.Day, c.OldValue)
	}
	t.changes = nil
	t.index = make(map[cellKey]int)
	return n
}

// Confirm 提交成功后清空列表，网格保留新值
func (t *Tracker) Confirm() {
	t.changes = nil
	t.index = make(map[cellKey]int)
}

func (t *Tracker) after(a, b PendingChange) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Seq > b.Seq
}

func (t *Tracker) revertAt(i int) PendingChange {
	c := t.changes[i]
	t.grid.Set(c.EmployeeID, c.Day, c.OldValue)
	t.removeAt(i)
	return c
}

func (t *Tracker) removeAt(i int) {
	next := make([]PendingChange, 0, len(t.changes)-1)
	next = append(next, t.changes[:i]...)
	next = append(next, t.changes[i+1:]...)
	t.changes = next

	t.index = make(map[cellKey]int, len(next))
	for j, c := range next {
		t.index[cellKey{c.EmployeeID, c.Day}] = j
	}
}

func (t *Tracker) nextSeq() int64 {
	t.seq++
	return t.seq
}
