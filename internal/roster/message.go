package roster

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultPlaceholder 旧值为空时在消息中显示的文本
const DefaultPlaceholder = "Sin Turno"

// ComposeMessage 生成单个员工的变更通知文本
//
//	Cambio de turno: *Juan Pérez*
//	- 15-03-2025 de "M" a "T"
//	- 16-03-2025 de "Sin Turno" a "N"
//
// 变更按日期升序输出；placeholder 为空时使用 DefaultPlaceholder。
func ComposeMessage(employeeName string, changes []PendingChange, year, month int, placeholder string) string {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	sorted := append([]PendingChange(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })

	var b strings.Builder
	fmt.Fprintf(&b, "Cambio de turno: *%s*", employeeName)
	for _, c := range sorted {
		old := c.OldValue
		if old == "" {
			old = placeholder
		}
		fmt.Fprintf(&b, "\n- %02d-%02d-%04d de \"%s\" a \"%s\"", c.Day, month, year, old, c.NewValue)
	}
	return b.String()
}

// EmployeeChanges 一个员工的变更分组
type EmployeeChanges struct {
	EmployeeID   string
	EmployeeName string
	Changes      []PendingChange
}

// GroupByEmployee 按员工分组，组的顺序为员工首次出现的顺序
func GroupByEmployee(changes []PendingChange) []EmployeeChanges {
	var groups []EmployeeChanges
	pos := make(map[string]int)
	for _, c := range changes {
		i, ok := pos[c.EmployeeID]
		if !ok {
			groups = append(groups, EmployeeChanges{EmployeeID: c.EmployeeID, EmployeeName: c.EmployeeName})
			i = len(groups) - 1
			pos[c.EmployeeID] = i
		}
		groups[i].Changes = append(groups[i].Changes, c)
	}
	return groups
}

// ComposeAggregate 多个员工合并为一条消息，各段之间空一行
func ComposeAggregate(groups []EmployeeChanges, year, month int, placeholder string) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, ComposeMessage(g.EmployeeName, g.Changes, year, month, placeholder))
	}
	return strings.Join(parts, "\n\n")
}
