package socket

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/wlynxg/anet"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// resolver 按名字解析接口及其 IPv4 地址
type resolver func(name string) (*net.Interface, netip.Addr, error)

// ResolveInterface 默认解析器
//
// 使用 anet 枚举接口，在 net.Interfaces 受限的平台上同样可用。
// 接口不存在返回 ConfigError；没有 IPv4 地址返回 ErrNoIPv4Address。
func ResolveInterface(name string) (*net.Interface, netip.Addr, error) {
	ifaces, err := anet.Interfaces()
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("list interfaces: %w", err)
	}

	var ifi *net.Interface
	for i := range ifaces {
		if ifaces[i].Name == name {
			ifi = &ifaces[i]
			break
		}
	}
	if ifi == nil {
		return nil, netip.Addr{}, types.NewConfigError("interfaces", "unresolvable interface name %q", name)
	}
	if ifi.Flags&net.FlagUp == 0 {
		log.Warn("接口未启用", "iface", name)
	}

	addrs, err := anet.InterfaceAddrsByInterface(ifi)
	if err != nil {
		return nil, netip.Addr{}, fmt.Errorf("interface %s addrs: %w", name, err)
	}
	if addr, ok := firstIPv4(addrs); ok {
		return ifi, addr, nil
	}
	return nil, netip.Addr{}, fmt.Errorf("interface %s: %w", name, types.ErrNoIPv4Address)
}

// firstIPv4 返回第一个 IPv4 单播地址
func firstIPv4(addrs []net.Addr) (netip.Addr, bool) {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.Is4() && !addr.IsMulticast() && !addr.IsUnspecified() {
			return addr, true
		}
	}
	return netip.Addr{}, false
}
