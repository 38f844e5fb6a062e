package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/internal/dto"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
)

func TestChangeLogService_List(t *testing.T) {
	repo, m := newTestRepository()
	ctx := context.Background()
	at := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	_, _ = m.logs.Append(ctx, []repository.ShiftChangeEntry{
		{EmployeeID: "emp-jp", ShiftDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), OldShift: "M", NewShift: "T", ChangedAt: at},
		{EmployeeID: "emp-ar", ShiftDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), NewShift: "N", ChangedAt: at},
	}, false)

	svc := NewChangeLogService(repo, zap.NewNop())
	list, total, err := svc.List(ctx, &dto.ShiftChangeLogListRequest{EmployeeID: "emp-jp"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("期望 1 条，实际 total=%d", total)
	}

	got := list[0]
	if got.ShiftDate == nil || *got.ShiftDate != "2025-03-15" {
		t.Errorf("shift_date 不符: %v", got.ShiftDate)
	}
	if got.OldShift == nil || *got.OldShift != "M" || got.NewShift != "T" {
		t.Errorf("班次不符: %+v", got)
	}
	if got.ChangedAt != "2025-03-02T10:00:00Z" {
		t.Errorf("changed_at 不符: %s", got.ChangedAt)
	}
}

func TestChangeLogService_List_EmptyOldShift(t *testing.T) {
	repo, m := newTestRepository()
	ctx := context.Background()
	_, _ = m.logs.Append(ctx, []repository.ShiftChangeEntry{
		{EmployeeID: "emp-ar", ShiftDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), NewShift: "N"},
	}, false)

	svc := NewChangeLogService(repo, zap.NewNop())
	list, _, _ := svc.List(ctx, &dto.ShiftChangeLogListRequest{})
	if len(list) != 1 || list[0].OldShift != nil || list[0].ChangedBy != nil {
		t.Errorf("空旧值与空操作人应为 null: %+v", list)
	}
}

func TestChangeLogService_Backfill(t *testing.T) {
	repo, m := newTestRepository()
	m.logs.backfilled = 7

	svc := NewChangeLogService(repo, zap.NewNop())
	resp, err := svc.Backfill(context.Background())
	if err != nil {
		t.Fatalf("Backfill 应成功: %v", err)
	}
	if resp.Updated != 7 {
		t.Errorf("期望回填 7 条，实际=%d", resp.Updated)
	}
}
