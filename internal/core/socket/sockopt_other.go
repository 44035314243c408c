//go:build !unix

package socket

import "syscall"

// listenControl 其它平台不设置额外套接字选项
func listenControl(string, bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
