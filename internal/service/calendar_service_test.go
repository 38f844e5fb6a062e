package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/internal/model"
)

func TestCalendarService_EmployeeNotFound(t *testing.T) {
	repo, _ := newTestRepository()
	svc := NewCalendarService(testRosterConfig(), repo, zap.NewNop())

	_, _, err := svc.EmployeeCalendar(context.Background(), "missing", 2025, 3)
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("期望 ErrEmployeeNotFound，实际: %v", err)
	}
}

func TestCalendarService_EmployeeCalendar(t *testing.T) {
	repo, m := newTestRepository()
	m.employees.add("emp-jp", "Juan Pérez", "12.345.678-9", "")
	m.shifts.set("emp-jp", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "T")
	sh := m.shifts.set("emp-jp", time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), "N")
	sh.Comment = model.StrPtr("reemplazo")
	// 占位状态不生成事件
	m.shifts.set("emp-jp", time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), "X")

	svc := NewCalendarService(testRosterConfig(), repo, zap.NewNop())
	data, filename, err := svc.EmployeeCalendar(context.Background(), "emp-jp", 2025, 3)
	if err != nil {
		t.Fatalf("EmployeeCalendar 应成功: %v", err)
	}
	if filename != "turnos_12.345.678-9_2025-03.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("生成的日历无法解析: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("期望 2 个事件，实际=%d", len(events))
	}

	byID := map[string]*ics.VEvent{}
	for _, e := range events {
		byID[e.Id()] = e
	}
	evt, ok := byID["emp-jp-20250315@turnos"]
	if !ok {
		t.Fatalf("缺少 15 日事件，实际 UID: %v", byID)
	}
	if got := evt.GetProperty(ics.ComponentPropertySummary).Value; got != "Turno Tarde (T)" {
		t.Errorf("摘要不符: %q", got)
	}
	if got := evt.GetProperty(ics.ComponentPropertyDtStart).Value; got != "20250315" {
		t.Errorf("全天事件开始日期不符: %q", got)
	}

	night := byID["emp-jp-20250316@turnos"]
	if night == nil || night.GetProperty(ics.ComponentPropertyDescription).Value != "reemplazo" {
		t.Error("16 日事件应带备注")
	}

	if !strings.Contains(string(data), "X-WR-CALNAME:Turnos Juan Pérez 03-2025") {
		t.Error("日历名称缺失")
	}
}
