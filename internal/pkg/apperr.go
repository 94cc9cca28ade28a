package pkg

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类，handler 层按它映射 HTTP 状态码
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindNotAuthorized
	KindConflict
	KindUpstream
)

type AppError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AppError) Unwrap() error { return e.Err }

func NewError(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Msg: msg}
}

// WrapUpstream 存储层错误统一包成 upstream failure
func WrapUpstream(err error) *AppError {
	return &AppError{Kind: KindUpstream, Msg: "storage unavailable", Err: err}
}

// KindOf 取错误分类，非 AppError 一律算 unknown
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
