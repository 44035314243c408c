package socket

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/wlynxg/anet"
)

// loopback 返回本机回环接口及其 IPv4 地址，不存在时跳过测试
func loopback(t *testing.T) (*net.Interface, netip.Addr) {
	t.Helper()
	ifaces, err := anet.Interfaces()
	if err != nil {
		t.Skipf("list interfaces: %v", err)
	}
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagLoopback == 0 || ifi.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := anet.InterfaceAddrsByInterface(ifi)
		if err != nil {
			continue
		}
		if addr, ok := firstIPv4(addrs); ok {
			return ifi, addr
		}
	}
	t.Skip("no IPv4 loopback interface")
	return nil, netip.Addr{}
}

func testManager() *Manager {
	return NewManager(Config{
		ReadBufferSize: 2048,
		SendRetries:    1,
		RetryBackoff:   time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
	})
}

// fakeResolver 按名字返回预置结果，未登记的名字返回 err
func fakeResolver(known map[string]*net.Interface, addr netip.Addr, err error) resolver {
	return func(name string) (*net.Interface, netip.Addr, error) {
		if ifi, ok := known[name]; ok {
			return ifi, addr, nil
		}
		return nil, netip.Addr{}, err
	}
}
