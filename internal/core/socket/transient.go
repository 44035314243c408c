package socket

import (
	"errors"
	"os"

	tec "github.com/jbenet/go-temp-err-catcher"
	"go.uber.org/multierr"
)

// isTransient 判断读写错误是否可重试
//
// 覆盖实现 Temporary() 的错误（EINTR、EAGAIN 等）、超时，
// 以及平台相关的 ECONNREFUSED / ENOBUFS。
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if tec.ErrIsTemporary(err) {
		return true
	}
	return isTransientErrno(err)
}

// combine 合并多个错误，忽略 nil
func combine(errs ...error) error {
	return multierr.Combine(errs...)
}
