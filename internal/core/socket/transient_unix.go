//go:build unix

package socket

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isTransientErrno 未实现 Temporary() 但对 UDP 仍属瞬时的错误码
//
// ECONNREFUSED 来自先前单播发送触发的 ICMP 端口不可达，
// ENOBUFS 表示发送缓冲暂时耗尽。
func isTransientErrno(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED) ||
		errors.Is(err, unix.ENOBUFS) ||
		errors.Is(err, unix.EINTR) ||
		errors.Is(err, unix.EAGAIN)
}
