package config

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// InterfaceConfig 单个接口绑定配置
//
// Receive / Transmit 默认均为 true（JSON 中省略即启用）。
type InterfaceConfig struct {
	// Name 接口名，如 eth0
	Name string `json:"name"`

	// Receive 是否在该接口接收
	Receive bool `json:"receive"`

	// Transmit 是否经该接口发送
	Transmit bool `json:"transmit"`

	// Groups 加入的组播组，为空时使用 239.255.255.250
	Groups []string `json:"groups,omitempty"`
}

// UnmarshalJSON 实现 json.Unmarshaler，省略的方向开关默认启用
func (ic *InterfaceConfig) UnmarshalJSON(data []byte) error {
	type plain InterfaceConfig
	out := plain{Receive: true, Transmit: true}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*ic = InterfaceConfig(out)
	return nil
}

// ParseInterfaceSpec 解析命令行接口描述
//
// 格式: name[:rx|tx|rxtx]，如 "eth0"、"eth1:tx"。
func ParseInterfaceSpec(spec string) (InterfaceConfig, error) {
	name, mode, hasMode := strings.Cut(strings.TrimSpace(spec), ":")
	if name == "" {
		return InterfaceConfig{}, fmt.Errorf("empty interface name in %q", spec)
	}
	ic := InterfaceConfig{Name: name, Receive: true, Transmit: true}
	if !hasMode {
		return ic, nil
	}
	switch strings.ToLower(mode) {
	case "rx", "receive":
		ic.Transmit = false
	case "tx", "transmit":
		ic.Receive = false
	case "rxtx", "both", "":
	default:
		return InterfaceConfig{}, fmt.Errorf("interface %q: unknown mode %q (want rx|tx|rxtx)", name, mode)
	}
	return ic, nil
}

// GroupAddrs 返回解析后的组播组（已通过 Validate 时不会出错）
func (ic InterfaceConfig) GroupAddrs() []netip.Addr {
	if len(ic.Groups) == 0 {
		return []netip.Addr{netip.MustParseAddr(DefaultGroup)}
	}
	out := make([]netip.Addr, 0, len(ic.Groups))
	for _, g := range ic.Groups {
		if addr, err := netip.ParseAddr(g); err == nil {
			out = append(out, addr.Unmap())
		}
	}
	return out
}

func (ic InterfaceConfig) validate(field string) error {
	if ic.Name == "" {
		return types.NewConfigError(field+".name", "must not be empty")
	}
	if !ic.Receive && !ic.Transmit {
		return types.NewConfigError(field, "interface %q has both receive and transmit disabled", ic.Name)
	}
	for j, g := range ic.Groups {
		addr, err := netip.ParseAddr(g)
		if err != nil || !addr.Unmap().Is4() || !addr.IsMulticast() {
			return types.NewConfigError(fmt.Sprintf("%s.groups[%d]", field, j), "invalid IPv4 multicast group %q", g)
		}
	}
	return nil
}

func (c *Config) validateInterfaces() error {
	if len(c.Interfaces) == 0 {
		return types.NewConfigError("interfaces", "at least one interface is required")
	}
	seen := make(map[string]struct{}, len(c.Interfaces))
	receivers := 0
	for i, ic := range c.Interfaces {
		field := fmt.Sprintf("interfaces[%d]", i)
		if err := ic.validate(field); err != nil {
			return err
		}
		if _, dup := seen[ic.Name]; dup {
			return types.NewConfigError(field+".name", "duplicate interface %q", ic.Name)
		}
		seen[ic.Name] = struct{}{}
		if ic.Receive {
			receivers++
		}
	}
	if receivers == 0 {
		return types.NewConfigError("interfaces", "no interface has receive enabled")
	}
	return nil
}
