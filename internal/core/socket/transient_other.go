//go:build !unix

package socket

func isTransientErrno(error) bool { return false }
