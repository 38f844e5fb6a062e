package handler

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/RyouhaWH/turnos-app-sub002/internal/roster"
)

// RegisterShiftCodeValidator 向 gin 的校验引擎注册 `shiftcode` 标签：
// 空值表示清空单元格，非空值必须在班次词表内
func RegisterShiftCodeValidator(vocab *roster.Vocabulary) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("shiftcode", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		return code == "" || vocab.Valid(code)
	})
}
