// Package roster 实现月度排班表的编辑核心：网格、待提交变更追踪、
// 可通知变更筛选以及通知文本生成。包内不做任何 I/O。
package roster

import (
	"fmt"
	"time"

	pkgerrors "github.com/RyouhaWH/turnos-app-sub002/pkg/errors"
)

// Employee 网格中的一行（员工）
type Employee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Rut   string `json:"rut"`
	Phone string `json:"phone,omitempty"`
}

// Grid 员工 × 日期 的班次矩阵，对应一个年月
// Cells: employeeID → day → code；未排班的单元格不存储
type Grid struct {
	Year      int                       `json:"year"`
	Month     int                       `json:"month"`
	Employees []Employee                `json:"employees"`
	Cells     map[string]map[int]string `json:"cells"`

	rows map[string]int
}

// NewGrid 创建空网格
func NewGrid(year, month int, employees []Employee) (*Grid, error) {
	if month < 1 || month > 12 {
		return nil, pkgerrors.NewValidation("month", "月份必须在 1-12 之间")
	}
	if year < 2000 || year > 2100 {
		return nil, pkgerrors.NewValidation("year", "年份超出范围")
	}
	g := &Grid{
		Year:      year,
		Month:     month,
		Employees: append([]Employee(nil), employees...),
		Cells:     make(map[string]map[int]string),
	}
	g.reindex()
	return g, nil
}

func (g *Grid) reindex() {
	g.rows = make(map[string]int, len(g.Employees))
	for i, e := range g.Employees {
		g.rows[e.ID] = i
	}
	if g.Cells == nil {
		g.Cells = make(map[string]map[int]string)
	}
}

// DaysInMonth 当月天数
func (g *Grid) DaysInMonth() int {
	return time.Date(g.Year, time.Month(g.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Date 当月某日的日期（零点）
func (g *Grid) Date(day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(g.Year, time.Month(g.Month), day, 0, 0, 0, 0, loc)
}

// Employee 查找员工行
func (g *Grid) Employee(id string) (Employee, bool) {
	if g.rows == nil {
		g.reindex()
	}
	i, ok := g.rows[id]
	if !ok {
		return Employee{}, false
	}
	return g.Employees[i], true
}

// CheckCell 校验员工与日期是否落在网格内
func (g *Grid) CheckCell(employeeID string, day int) error {
	if _, ok := g.Employee(employeeID); !ok {
		return pkgerrors.NewValidation("employee_id", fmt.Sprintf("员工 %s 不在当前排班表中", employeeID))
	}
	if day < 1 || day > g.DaysInMonth() {
		return pkgerrors.NewValidation("day", fmt.Sprintf("日期 %d 超出 %04d-%02d 的天数", day, g.Year, g.Month))
	}
	return nil
}

// Get 读取单元格，未排班返回空字符串
func (g *Grid) Get(employeeID string, day int) string {
	return g.Cells[employeeID][day]
}

// Set 写入单元格，空值删除
func (g *Grid) Set(employeeID string, day int, code string) {
	row := g.Cells[employeeID]
	if code == "" {
		if row != nil {
			delete(row, day)
			if len(row) == 0 {
				delete(g.Cells, employeeID)
			}
		}
		return
	}
	if row == nil {
		row = make(map[int]string)
		g.Cells[employeeID] = row
	}
	row[day] = code
}

// Clone 深拷贝
func (g *Grid) Clone() *Grid {
	c := &Grid{
		Year:      g.Year,
		Month:     g.Month,
		Employees: append([]Employee(nil), g.Employees...),
		Cells:     make(map[string]map[int]string, len(g.Cells)),
	}
	for id, row := range g.Cells {
		r := make(map[int]string, len(row))
		for d, v := range row {
			r[d] = v
		}
		c.Cells[id] = r
	}
	c.reindex()
	return c
}
