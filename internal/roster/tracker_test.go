package roster

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
)

// ── helpers ──

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestTracker(t *testing.T) (*Tracker, *Grid) {
	t.Helper()
	g, err := NewGrid(2025, 3, []Employee{
		{ID: "e1", Name: "Juan Pérez", Rut: "11.111.111-1", Phone: "+56911111111"},
		{ID: "e2", Name: "Ana Rojas", Rut: "22.222.222-2"},
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	g.Set("e1", 15, "M")

	clock := &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	n := 0
	tr := NewTracker(g, NewVocabulary(nil),
		WithClock(clock.now),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("c%d", n) }),
	)
	return tr, g
}

// ── Register ──

func TestRegister_CreatesChangeWithOldValue(t *testing.T) {
	tr, g := newTestTracker(t)

	c, tracked, err := tr.Register("e1", 15, "T")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !tracked {
		t.Fatal("变更应被追踪")
	}
	if c.OldValue != "M" || c.NewValue != "T" {
		t.Errorf("old/new = %q/%q, want M/T", c.OldValue, c.NewValue)
	}
	if c.EmployeeName != "Juan Pérez" || c.EmployeeRut != "11.111.111-1" {
		t.Errorf("员工信息未取自网格: %+v", c)
	}
	if got := g.Get("e1", 15); got != "T" {
		t.Errorf("网格单元格 = %q, want T", got)
	}
}

func TestRegister_SingleEntryPerCell(t *testing.T) {
	tr, _ := newTestTracker(t)

	first, _, _ := tr.Register("e1", 15, "T")
	second, _, _ := tr.Register("e1", 15, "N")

	if tr.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tr.Len())
	}
	if second.ID != first.ID {
		t.Errorf("更新后 ID 应保持不变: %s != %s", second.ID, first.ID)
	}
	if second.OldValue != "M" {
		t.Errorf("OldValue 应保持首次编辑前的值, got %q", second.OldValue)
	}
	if second.NewValue != "N" {
		t.Errorf("NewValue = %q, want N", second.NewValue)
	}
}

func TestRegister_ReplaceOnUpdateDoesNotMutateReturnedSlice(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.Register("e1", 15, "T")
	before := tr.Pending()

	tr.Register("e1", 15, "N")

	if before[0].NewValue != "T" {
		t.Errorf("已返回的快照被修改: %q", before[0].NewValue)
	}
}

func TestRegister_RevertToOriginalCollapses(t *testing.T) {
	tr, g := newTestTracker(t)
	tr.Register("e1", 15, "T")

	_, tracked, err := tr.Register("e1", 15, "M")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tracked {
		t.Error("改回原值后不应继续追踪")
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
	if g.Get("e1", 15) != "M" {
		t.Errorf("网格应为原值 M, got %q", g.Get("e1", 15))
	}
}

func TestRegister_SameValueIsNoop(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, tracked, err := tr.Register("e1", 15, "M")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tracked || tr.Len() != 0 {
		t.Errorf("相同值不应产生变更, tracked=%v len=%d", tracked, tr.Len())
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		empID string
		day   int
		value string
		field string
	}{
		{"未知员工", "nope", 1, "M", "employee_id"},
		{"日期为 0", "e1", 0, "M", "day"},
		{"超出月末", "e1", 32, "M", "day"},
		{"未知代码", "e1", 1, "ZZ", "new_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker(t)
			_, _, err := tr.Register(tt.empID, tt.day, tt.value)

			var ve *pkgerrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("期望 ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %s, want %s", ve.Field, tt.field)
			}
			if tr.Len() != 0 {
				t.Error("校验失败不应登记变更")
			}
		})
	}
}

// ── Undo ──

func TestUndoLast_RevertsMostRecent(t *testing.T) {
	tr, g := newTestTracker(t)
	tr.Register("e1", 15, "T")
	tr.Register("e2", 3, "N")
	tr.Register("e1", 15, "D") // 最近一次登记

	undone, ok := tr.UndoLast()
	if !ok {
		t.Fatal("UndoLast 应返回 true")
	}
	if undone.EmployeeID != "e1" || undone.Day != 15 {
		t.Errorf("撤销了错误的变更: %+v", undone)
	}
	if g.Get("e1", 15) != "M" {
		t.Errorf("单元格应还原为 M, got %q", g.Get("e1", 15))
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
}

func TestUndoLast_TieBrokenBySeq(t *testing.T) {
	g, _ := NewGrid(2025, 3, []Employee{{ID: "e1", Name: "A"}})
	fixed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(g, NewVocabulary(nil), WithClock(func() time.Time { return fixed }))

	tr.Register("e1", 1, "M")
	tr.Register("e1", 2, "T")

	undone, _ := tr.UndoLast()
	if undone.Day != 2 {
		t.Errorf("时间戳相同时应撤销序号更大的变更, got day %d", undone.Day)
	}
}

func TestUndoLast_EmptyIsNoop(t *testing.T) {
	tr, _ := newTestTracker(t)
	if _, ok := tr.UndoLast(); ok {
		t.Error("空列表 UndoLast 应为 no-op")
	}
}

func TestUndo_IsIdempotent(t *testing.T) {
	tr, g := newTestTracker(t)
	c, _, _ := tr.Register("e1", 15, "T")

	if _, ok := tr.Undo(c.ID); !ok {
		t.Fatal("第一次 Undo 应成功")
	}
	if _, ok := tr.Undo(c.ID); ok {
		t.Error("重复 Undo 应为 no-op")
	}
	if g.Get("e1", 15) != "M" {
		t.Errorf("单元格应为 M, got %q", g.Get("e1", 15))
	}
}

func TestClearAll_RevertsEveryCell(t *testing.T) {
	tr, g := newTestTracker(t)
	before := g.Clone()
	tr.Register("e1", 15, "T")
	tr.Register("e1", 16, "N")
	tr.Register("e2", 1, "F")

	if n := tr.ClearAll(); n != 3 {
		t.Errorf("ClearAll = %d, want 3", n)
	}
	if diff := cmp.Diff(before.Cells, g.Cells); diff != "" {
		t.Errorf("网格未完全还原 (-want +got):\n%s", diff)
	}
}

func TestConfirm_KeepsGridValues(t *testing.T) {
	tr, g := newTestTracker(t)
	tr.Register("e1", 15, "T")

	tr.Confirm()

	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
	if g.Get("e1", 15) != "T" {
		t.Errorf("Confirm 不应还原网格, got %q", g.Get("e1", 15))
	}
	// 提交后再次编辑，旧值取已提交的值
	c, _, _ := tr.Register("e1", 15, "N")
	if c.OldValue != "T" {
		t.Errorf("OldValue = %q, want T", c.OldValue)
	}
}

// ── Snapshot ──

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.Register("e1", 15, "T")
	tr.Register("e2", 4, "N")

	snap := tr.Snapshot()
	restored, err := Restore(snap, NewVocabulary(nil))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(tr.Pending(), restored.Pending()); diff != "" {
		t.Errorf("pending 不一致 (-want +got):\n%s", diff)
	}

	// 恢复后索引可用：同一单元格仍只有一条
	restored.Register("e1", 15, "D")
	if restored.Len() != 2 {
		t.Errorf("Len = %d, want 2", restored.Len())
	}
	// 原追踪器不受影响
	if tr.Grid().Get("e1", 15) != "T" {
		t.Error("快照应为深拷贝")
	}
}

func TestRestore_RejectsDuplicateCell(t *testing.T) {
	g, _ := NewGrid(2025, 3, []Employee{{ID: "e1"}})
	_, err := Restore(Snapshot{
		Grid: g,
		Changes: []PendingChange{
			{ID: "a", EmployeeID: "e1", Day: 1, NewValue: "M"},
			{ID: "b", EmployeeID: "e1", Day: 1, NewValue: "T"},
		},
	}, NewVocabulary(nil))
	if err == nil {
		t.Fatal("重复单元格应返回错误")
	}
}
