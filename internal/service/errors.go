package service

import (
	"errors"
	"sort"
	"strings"
)

// 字段错误码
const (
	CodeRequired       = "required"
	CodeBlank          = "blank"
	CodeInvalid        = "invalid"
	CodeInvalidChoice  = "invalid_choice"
	CodeObjectInvalid  = "object_invalid"
	CodeParentInvalid  = "parent_invalid"
	CodeAuthorRequired = "author_required"
	CodeUnique         = "unique"
	CodeInvalidImage   = "invalid_image"
)

// NonFieldErrors 不属于某个字段的错误
const NonFieldErrors = "non_field_errors"

var (
	ErrPermissionDenied = errors.New("无权执行此操作")
	ErrNotFound         = errors.New("资源不存在")
)

// ValidationError 字段 -> 错误码
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// FieldError 单个字段错误
func FieldError(field, code string) *ValidationError {
	return NewValidationError().Add(field, code)
}

func (e *ValidationError) Add(field, code string) *ValidationError {
	e.Fields[field] = append(e.Fields[field], code)
	return e
}

// OrNil 没有错误时返回 nil
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ","))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Actor 当前请求的操作者，匿名时 UserID 为空
type Actor struct {
	UserID  string
	IsStaff bool
}

// Anonymous 匿名访问者
var Anonymous = Actor{}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != ""
}

// CanAccess 管理员或本人
func (a Actor) CanAccess(userID string) bool {
	return a.IsStaff || (a.UserID != "" && a.UserID == userID)
}
