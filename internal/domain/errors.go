package domain

import (
	"errors"
	"fmt"
)

// ErrRunNotFound 表示运行不存在，或者不属于当前调用方
var ErrRunNotFound = errors.New("排班运行不存在")

// ValidationError 表示排班问题或算法参数不合法，在任何一代开始之前就会被拒绝
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
