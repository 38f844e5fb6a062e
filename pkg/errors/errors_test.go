package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTaxonomy(t *testing.T) {
	ve := NewValidation("day", "超出当月天数")
	if !IsValidation(fmt.Errorf("wrap: %w", ve)) {
		t.Error("包装后的 ValidationError 应可识别")
	}
	if IsPersistence(ve) {
		t.Error("ValidationError 不应识别为 PersistenceError")
	}

	pe := &PersistenceError{Op: "append", Err: ErrOptimisticLock}
	if !IsPersistence(pe) {
		t.Error("PersistenceError 应可识别")
	}
	if !errors.Is(pe, ErrOptimisticLock) {
		t.Error("PersistenceError 应透传底层错误")
	}

	ne := &NotificationError{Recipient: "+569", Attempt: 2, Err: errors.New("timeout")}
	if ne.Error() == "" || errors.Unwrap(ne) == nil {
		t.Error("NotificationError 应包含信息并可 Unwrap")
	}
}
