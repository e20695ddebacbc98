// Package apperr 定义业务错误分类，每类错误对应固定的 HTTP 状态码与错误码.
//
// 使用 errors.Is 按分类匹配：
//
//	if errors.Is(err, apperr.KindNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类，同时作为响应体中的 code.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindInvalidParent Kind = "INVALID_PARENT"
	KindNotFound      Kind = "NOT_FOUND"
	KindDuplicateName Kind = "DUPLICATE_NAME"
	KindNoFile        Kind = "NO_FILE"
	KindFileNotFound  Kind = "FILE_NOT_FOUND"
	KindInvalidType   Kind = "INVALID_TYPE"
	KindFileTooLarge  Kind = "FILE_TOO_LARGE"
	KindInternal      Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindValidation:    http.StatusBadRequest,
	KindInvalidParent: http.StatusBadRequest,
	KindNotFound:      http.StatusNotFound,
	KindDuplicateName: http.StatusConflict,
	KindNoFile:        http.StatusBadRequest,
	KindFileNotFound:  http.StatusNotFound,
	KindInvalidType:   http.StatusBadRequest,
	KindFileTooLarge:  http.StatusRequestEntityTooLarge,
	KindInternal:      http.StatusInternalServerError,
}

// Error 使 Kind 可以作为 errors.Is 的目标.
func (k Kind) Error() string { return string(k) }

// StatusCode 返回分类对应的 HTTP 状态码.
func (k Kind) StatusCode() int {
	if code, ok := statusByKind[k]; ok {
		return code
	}

	return http.StatusInternalServerError
}

// Error 业务错误.
type Error struct {
	Kind    Kind
	Message string
	// Details 字段名到错误信息，仅校验错误使用.
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按分类匹配.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// StatusCode 返回 HTTP 状态码.
func (e *Error) StatusCode() int { return e.Kind.StatusCode() }

// New 创建业务错误.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf 创建带格式化信息的业务错误.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Internal 包装未预期的内部错误.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// Validation 创建带字段详情的校验错误.
func Validation(msg string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// As 提取 *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// KindOf 返回错误分类，非业务错误视为 INTERNAL_ERROR.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}

	return KindInternal
}
