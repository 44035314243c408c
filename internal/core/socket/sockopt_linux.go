//go:build linux

package socket

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenControl 返回 net.ListenConfig 的 Control 回调
//
// 接收套接字：SO_REUSEADDR、SO_REUSEPORT、IP_MULTICAST_ALL=0、SO_BINDTODEVICE。
// 发送套接字：SO_BINDTODEVICE。
func listenControl(device string, receive bool) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			if receive {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					opErr = fmt.Errorf("set SO_REUSEADDR: %w", err)
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					log.Warn("设置 SO_REUSEPORT 失败", "iface", device, "err", err)
				}
				// 只接收本套接字加入的组，避免其它接口的组播串入
				if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MULTICAST_ALL, 0); err != nil {
					log.Debug("设置 IP_MULTICAST_ALL 失败", "iface", device, "err", err)
				}
			}
			if device == "" {
				return
			}
			if err := unix.BindToDevice(int(fd), device); err != nil {
				if errors.Is(err, unix.EPERM) {
					// 无 CAP_NET_RAW 时退化为按接口索引过滤
					log.Warn("SO_BINDTODEVICE 权限不足，改为按接口索引过滤", "iface", device)
					return
				}
				opErr = fmt.Errorf("set SO_BINDTODEVICE: %w", err)
			}
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
