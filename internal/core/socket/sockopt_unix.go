//go:build unix && !linux

package socket

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenControl 返回 net.ListenConfig 的 Control 回调
//
// 非 Linux 平台没有 SO_BINDTODEVICE，接口隔离依赖接收时按接口索引过滤。
func listenControl(device string, receive bool) func(network, address string, c syscall.RawConn) error {
	if !receive {
		return nil
	}
	return func(_, _ string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
				opErr = fmt.Errorf("set SO_REUSEADDR: %w", err)
				return
			}
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
				log.Warn("设置 SO_REUSEPORT 失败", "iface", device, "err", err)
			}
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
