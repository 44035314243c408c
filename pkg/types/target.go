package types

import (
	"fmt"
	"net/netip"
	"strings"
)

// ============================================================================
//                              Target - 动作目标
// ============================================================================

// Target forward/dial 动作的目标
//
// 目标要么是按名字引用的接口绑定（报文发往该绑定的组播组），
// 要么是显式的 ip:port 地址（经发送绑定单播发出）。
type Target struct {
	// Binding 接口绑定名
	Binding string

	// Addr 显式地址
	Addr netip.AddrPort
}

// ParseTarget 解析目标字符串
//
// "1.2.3.4:1900" 解析为地址，其余非空字符串解析为绑定名。
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("empty target")
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		if !ap.Addr().Unmap().Is4() {
			return Target{}, fmt.Errorf("target %q: only IPv4 addresses are supported", s)
		}
		if ap.Port() == 0 {
			return Target{}, fmt.Errorf("target %q: port must be non-zero", s)
		}
		return Target{Addr: unmapAddrPort(ap)}, nil
	}
	if strings.ContainsAny(s, ": /") {
		return Target{}, fmt.Errorf("target %q: not an interface name or ip:port", s)
	}
	return Target{Binding: s}, nil
}

// IsBinding 是否按名字引用绑定
func (t Target) IsBinding() bool {
	return t.Binding != ""
}

// String 返回字符串表示
func (t Target) String() string {
	if t.IsBinding() {
		return t.Binding
	}
	return t.Addr.String()
}
