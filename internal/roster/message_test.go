package roster

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComposeMessage_Format(t *testing.T) {
	changes := []PendingChange{
		{Day: 16, OldValue: "", NewValue: "N"},
		{Day: 5, OldValue: "M", NewValue: "T"},
	}

	got := ComposeMessage("Juan Pérez", changes, 2025, 3, "")

	want := "Cambio de turno: *Juan Pérez*\n" +
		"- 05-03-2025 de \"M\" a \"T\"\n" +
		"- 16-03-2025 de \"Sin Turno\" a \"N\""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComposeMessage (-want +got):\n%s", diff)
	}
}

func TestComposeMessage_CustomPlaceholder(t *testing.T) {
	got := ComposeMessage("Ana", []PendingChange{{Day: 1, NewValue: "M"}}, 2024, 12, "—")
	want := "Cambio de turno: *Ana*\n- 01-12-2024 de \"—\" a \"M\""
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGroupByEmployee_FirstAppearanceOrder(t *testing.T) {
	in := []PendingChange{
		{EmployeeID: "b", EmployeeName: "B", Day: 1},
		{EmployeeID: "a", EmployeeName: "A", Day: 2},
		{EmployeeID: "b", EmployeeName: "B", Day: 3},
	}

	groups := GroupByEmployee(in)

	if len(groups) != 2 {
		t.Fatalf("len = %d, want 2", len(groups))
	}
	if groups[0].EmployeeID != "b" || len(groups[0].Changes) != 2 {
		t.Errorf("第一组 = %+v", groups[0])
	}
	if groups[1].EmployeeID != "a" {
		t.Errorf("第二组 = %+v", groups[1])
	}
}

func TestComposeAggregate(t *testing.T) {
	groups := []EmployeeChanges{
		{EmployeeName: "A", Changes: []PendingChange{{Day: 1, OldValue: "M", NewValue: "T"}}},
		{EmployeeName: "B", Changes: []PendingChange{{Day: 2, OldValue: "T", NewValue: "N"}}},
	}
	got := ComposeAggregate(groups, 2025, 1, "")
	want := "Cambio de turno: *A*\n- 01-01-2025 de \"M\" a \"T\"\n\n" +
		"Cambio de turno: *B*\n- 02-01-2025 de \"T\" a \"N\""
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// 场景：Juan Pérez 15 日早班、16 日未排班；改为 15 日午班、16 日夜班后提交
func TestScenario_JuanPerez(t *testing.T) {
	g, _ := NewGrid(2025, 3, []Employee{{ID: "jp", Name: "Juan Pérez", Rut: "12.345.678-9"}})
	g.Set("jp", 15, "M")
	vocab := NewVocabulary(nil)
	tr := NewTracker(g, vocab)

	if _, _, err := tr.Register("jp", 15, "T"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := tr.Register("jp", 16, "N"); err != nil {
		t.Fatal(err)
	}

	pending := tr.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	notifiable := NewClassifier(vocab).FilterNotifiable(pending)
	if len(notifiable) != 2 {
		t.Fatalf("两条变更都应通知, got %d", len(notifiable))
	}

	msg := ComposeMessage("Juan Pérez", notifiable, 2025, 3, "")
	want := "Cambio de turno: *Juan Pérez*\n" +
		"- 15-03-2025 de \"M\" a \"T\"\n" +
		"- 16-03-2025 de \"Sin Turno\" a \"N\""
	if msg != want {
		t.Errorf("消息不符:\n got %q\nwant %q", msg, want)
	}

	tr.Confirm()
	if tr.Len() != 0 || g.Get("jp", 16) != "N" {
		t.Error("提交后列表应清空且网格保留新值")
	}
}
