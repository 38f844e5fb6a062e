package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/config"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
	"github.com/RyouhaWH/turnos-app-sub002/internal/roster"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEmployees  = errors.New("没有在职员工，无法导出排班表")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出已提交的月度排班（employee_shifts），不含任何会话中的未提交变更
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Excel 格式：一个月一个 Sheet，行 = 员工，列 = 日期；另附代码说明 Sheet
type ExportService interface {
	// ExportRoster 导出月度排班表为 Excel
	ExportRoster(ctx context.Context, year, month int) (*bytes.Buffer, string, error)
}

type exportService struct {
	vocab  *roster.Vocabulary
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.RosterConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{vocab: roster.VocabularyFromConfig(cfg), repo: repo, logger: logger}
}

var weekdayInitials = [...]string{"D", "L", "M", "X", "J", "V", "S"}

// ═══════════════════════════════════════════════════════════
// ExportRoster — 导出月度排班表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Turnos MM-YYYY"
//   - 第 1 行标题，第 2 行日期，第 3 行星期缩写
//   - 数据行：Nombre | RUT | 1 … 31
//   - 周末列使用浅色底纹
//   - Sheet "Códigos"：代码与说明
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportRoster(ctx context.Context, year, month int) (*bytes.Buffer, string, error) {
	// 1. 查询员工与当月班次
	employees, err := s.repo.Employee.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询员工失败", zap.Error(err))
		return nil, "", err
	}
	if len(employees) == 0 {
		return nil, "", ErrExportNoEmployees
	}

	shifts, err := s.repo.EmployeeShift.ListByMonth(ctx, year, month)
	if err != nil {
		s.logger.Error("查询月度班次失败", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		return nil, "", err
	}

	// 2. 构建网格
	rows := make([]roster.Employee, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, roster.Employee{ID: e.EmployeeID, Name: e.Name, Rut: e.Rut})
	}
	grid, err := roster.NewGrid(year, month, rows)
	if err != nil {
		return nil, "", err
	}
	for _, sh := range shifts {
		if _, ok := grid.Employee(sh.EmployeeID); ok {
			grid.Set(sh.EmployeeID, sh.ShiftDate.Day(), sh.Shift)
		}
	}
	days := grid.DaysInMonth()

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("Turnos %02d-%04d", month, year)
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, colName(2), colName(1+days), 4)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	weekendStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	centerStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Turnos %02d-%04d", month, year))
	f.MergeCell(sheetName, "A1", cell(colName(1+days), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheetName, cell("A", 2), "Nombre")
	f.SetCellValue(sheetName, cell("B", 2), "RUT")
	for d := 1; d <= days; d++ {
		col := colName(1 + d)
		date := grid.Date(d, time.UTC)
		f.SetCellValue(sheetName, cell(col, 2), d)
		f.SetCellValue(sheetName, cell(col, 3), weekdayInitials[date.Weekday()])
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(1+days), 3), headerStyle)

	// 数据行
	row := 4
	for _, e := range grid.Employees {
		f.SetCellValue(sheetName, cell("A", row), e.Name)
		f.SetCellValue(sheetName, cell("B", row), e.Rut)
		for d := 1; d <= days; d++ {
			if code := grid.Get(e.ID, d); code != "" {
				f.SetCellValue(sheetName, cell(colName(1+d), row), code)
			}
		}
		row++
	}

	// 周末列底纹
	for d := 1; d <= days; d++ {
		col := colName(1 + d)
		style := centerStyle
		if wd := grid.Date(d, time.UTC).Weekday(); wd == time.Saturday || wd == time.Sunday {
			style = weekendStyle
		}
		f.SetCellStyle(sheetName, cell(col, 4), cell(col, row-1), style)
	}
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, XSplit: 2, YSplit: 3, TopLeftCell: "C4", ActivePane: "bottomRight"})

	// 代码说明
	legend := "Códigos"
	f.NewSheet(legend)
	f.SetCellValue(legend, "A1", "Código")
	f.SetCellValue(legend, "B1", "Descripción")
	f.SetCellStyle(legend, "A1", "B1", headerStyle)
	f.SetColWidth(legend, "B", "B", 24)
	r := 2
	for _, c := range s.vocab.Codes() {
		if c.Code == "" {
			continue
		}
		f.SetCellValue(legend, cell("A", r), c.Code)
		f.SetCellValue(legend, cell("B", r), c.Label)
		r++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("turnos_%04d-%02d.xlsx", year, month)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
