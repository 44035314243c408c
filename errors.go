package ssdprelay

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 中继未启动
	ErrNotStarted = errors.New("relay not started")

	// ErrAlreadyStarted 中继已启动
	ErrAlreadyStarted = errors.New("relay already started")

	// ErrRelayClosed 中继已关闭
	ErrRelayClosed = errors.New("relay closed")
)
