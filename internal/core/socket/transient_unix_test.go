//go:build unix

package socket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestIsTransient_Errno(t *testing.T) {
	assert.True(t, isTransient(fmt.Errorf("write: %w", unix.ECONNREFUSED)))
	assert.True(t, isTransient(fmt.Errorf("write: %w", unix.ENOBUFS)))
	assert.False(t, isTransient(fmt.Errorf("write: %w", unix.EBADF)))
}
