package relay

import "errors"

var (
	// ErrAlreadyStarted 中继已启动
	ErrAlreadyStarted = errors.New("relay: already started")

	// ErrNotStarted 中继未启动
	ErrNotStarted = errors.New("relay: not started")

	// ErrUnknownTarget 目标绑定不存在或未启用发送
	ErrUnknownTarget = errors.New("relay: unknown or non-transmitting target")

	// ErrNoTransmitter 没有可用于单播回复的发送绑定
	ErrNoTransmitter = errors.New("relay: no transmit binding available")

	// ErrNotSearch 报文不是 M-SEARCH
	ErrNotSearch = errors.New("relay: not an M-SEARCH")
)
