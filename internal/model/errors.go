package model

import (
	"errors"
	"strings"
)

var (
	// ErrClaimNotFound 报销单不存在
	ErrClaimNotFound = errors.New("claim not found")
	// ErrInvalidTransition 报销单已处于终态,不允许再次变更
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidStatus 未知的状态值
	ErrInvalidStatus = errors.New("invalid status")
)

// 字段错误码
const (
	CodeRequired          = "required"
	CodeTooShort          = "too_short"
	CodeTooLong           = "too_long"
	CodeMustBePositive    = "must_be_positive"
	CodeOutOfRange        = "out_of_range"
	CodeInconsistentTotal = "inconsistent_total"
	CodeInvalidFile       = "invalid_file"
)

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError 校验错误,包含所有违反的约束
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add 追加一个字段错误
func (e *ValidationError) Add(field, code, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: message})
}

// HasCode 是否包含指定错误码
func (e *ValidationError) HasCode(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// OrNil 没有错误时返回 nil
func (e *ValidationError) OrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
