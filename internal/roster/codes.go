package roster

import (
	"sort"

	"github.com/RyouhaWH/turnos-app-sub002/config"
)

// ShiftCode 班次代码定义
type ShiftCode struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Notifiable bool   `json:"notifiable"`
}

// DefaultCodes 内置班次词表
// 空字符串表示未排班；X/? 为占位状态，不触发通知
var DefaultCodes = []ShiftCode{
	{Code: "M", Label: "Mañana", Notifiable: true},
	{Code: "T", Label: "Tarde", Notifiable: true},
	{Code: "N", Label: "Noche", Notifiable: true},
	{Code: "D", Label: "Día completo", Notifiable: true},
	{Code: "F", Label: "Franco", Notifiable: true},
	{Code: "L", Label: "Licencia", Notifiable: true},
	{Code: "V", Label: "Vacaciones", Notifiable: true},
	{Code: "A", Label: "Administrativo", Notifiable: true},
	{Code: "", Label: "Sin asignar", Notifiable: false},
	{Code: "X", Label: "Sin turno", Notifiable: false},
	{Code: "?", Label: "Desconocido", Notifiable: false},
}

// Vocabulary 封闭的班次代码集合
type Vocabulary struct {
	codes map[string]ShiftCode
}

// NewVocabulary 从代码列表构建词表；列表为空时使用 DefaultCodes。
// 未显式声明的空代码总是被视为不可通知的合法值。
func NewVocabulary(codes []ShiftCode) *Vocabulary {
	if len(codes) == 0 {
		codes = DefaultCodes
	}
	v := &Vocabulary{codes: make(map[string]ShiftCode, len(codes)+1)}
	for _, c := range codes {
		v.codes[c.Code] = c
	}
	if _, ok := v.codes[""]; !ok {
		v.codes[""] = ShiftCode{Code: "", Label: "Sin asignar", Notifiable: false}
	}
	return v
}

// VocabularyFromConfig 由配置构建词表
func VocabularyFromConfig(cfg *config.RosterConfig) *Vocabulary {
	codes := make([]ShiftCode, 0, len(cfg.Codes))
	for _, c := range cfg.Codes {
		codes = append(codes, ShiftCode{Code: c.Code, Label: c.Label, Notifiable: c.Notifiable})
	}
	return NewVocabulary(codes)
}

// Valid 代码是否属于词表
func (v *Vocabulary) Valid(code string) bool {
	_, ok := v.codes[code]
	return ok
}

// Notifiable 代码是否为有意义的排班（非占位状态）
// 未知代码按不可通知处理
func (v *Vocabulary) Notifiable(code string) bool {
	c, ok := v.codes[code]
	return ok && c.Notifiable
}

// Label 代码的展示名称
func (v *Vocabulary) Label(code string) string {
	if c, ok := v.codes[code]; ok && c.Label != "" {
		return c.Label
	}
	return code
}

// Codes 按代码排序返回全部定义
func (v *Vocabulary) Codes() []ShiftCode {
	out := make([]ShiftCode, 0, len(v.codes))
	for _, c := range v.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
