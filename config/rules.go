package config

import (
	"fmt"
	"net/netip"
	"path"
	"strconv"
	"strings"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// RuleConfig 一条 M-SEARCH 路由规则
//
// 规则按顺序求值，第一条匹配的规则生效；没有规则匹配时默认 block。
type RuleConfig struct {
	// Name 规则名，用于日志和指标，为空时使用 "rule-<序号>"
	Name string `json:"name,omitempty"`

	// Match 匹配条件，所有非空字段都必须满足
	Match MatchConfig `json:"match"`

	// Action 动作：block | forward | proxy | dial
	Action types.Action `json:"action"`

	// Targets 目标列表（接口名或 ip:port），forward/dial 必须非空
	Targets []string `json:"targets,omitempty"`
}

// MatchConfig 规则匹配条件
type MatchConfig struct {
	// Interface 接收接口名
	Interface string `json:"interface,omitempty"`

	// DstPort 目的端口
	DstPort uint16 `json:"dst_port,omitempty"`

	// DstAddr 目的地址（组播组或单播地址）
	DstAddr string `json:"dst_addr,omitempty"`

	// SrcCIDR 源地址前缀
	SrcCIDR string `json:"src_cidr,omitempty"`

	// Method 请求方法，如 M-SEARCH、NOTIFY
	Method string `json:"method,omitempty"`

	// ST 搜索目标 glob，如 "urn:schemas-upnp-org:device:MediaRenderer:*"
	ST string `json:"st,omitempty"`
}

// RuleName 返回规则名
func (r RuleConfig) RuleName(index int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("rule-%d", index)
}

// ParseRuleSpec 解析命令行规则描述
//
// 格式: action[@match[,match...]][=target[,target...]]
// match 为 key:value，key 取 iface|port|dst|src|method|st。
//
// 示例:
//
//	forward@iface:eth0=eth1,eth2
//	proxy@iface:wg0,st:upnp:rootdevice
//	dial@src:10.8.0.0/24=192.168.1.1:1900
//	block
func ParseRuleSpec(spec string) (RuleConfig, error) {
	spec = strings.TrimSpace(spec)
	head, targets, hasTargets := strings.Cut(spec, "=")
	actionStr, matches, hasMatch := strings.Cut(head, "@")

	action, err := types.ParseAction(actionStr)
	if err != nil {
		return RuleConfig{}, err
	}
	rc := RuleConfig{Action: action}

	if hasMatch {
		for _, m := range strings.Split(matches, ",") {
			key, value, ok := strings.Cut(strings.TrimSpace(m), ":")
			if !ok || value == "" {
				return RuleConfig{}, fmt.Errorf("rule %q: malformed match %q (want key:value)", spec, m)
			}
			switch strings.ToLower(key) {
			case "iface", "interface":
				rc.Match.Interface = value
			case "port":
				p, err := strconv.ParseUint(value, 10, 16)
				if err != nil || p == 0 {
					return RuleConfig{}, fmt.Errorf("rule %q: invalid port %q", spec, value)
				}
				rc.Match.DstPort = uint16(p)
			case "dst":
				rc.Match.DstAddr = value
			case "src":
				rc.Match.SrcCIDR = value
			case "method":
				rc.Match.Method = value
			case "st":
				rc.Match.ST = value
			default:
				return RuleConfig{}, fmt.Errorf("rule %q: unknown match key %q", spec, key)
			}
		}
	}

	if hasTargets {
		for _, t := range strings.Split(targets, ",") {
			if t = strings.TrimSpace(t); t != "" {
				rc.Targets = append(rc.Targets, t)
			}
		}
	}
	return rc, nil
}

func (c *Config) validateRules() error {
	for i, r := range c.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if err := r.Match.validate(field + ".match"); err != nil {
			return err
		}
		if r.Match.Interface != "" {
			if ic, ok := c.Interface(r.Match.Interface); !ok || !ic.Receive {
				return types.NewConfigError(field+".match.interface", "unknown receive interface %q", r.Match.Interface)
			}
		}
		if r.Action.NeedsTargets() && len(r.Targets) == 0 {
			return types.NewConfigError(field+".targets", "must not be empty for %s", r.Action)
		}
		if !r.Action.NeedsTargets() && len(r.Targets) > 0 {
			return types.NewConfigError(field+".targets", "not used by %s", r.Action)
		}
		for j, ts := range r.Targets {
			tf := fmt.Sprintf("%s.targets[%d]", field, j)
			t, err := types.ParseTarget(ts)
			if err != nil {
				return &types.ConfigError{Field: tf, Err: err}
			}
			if t.IsBinding() {
				if ic, ok := c.Interface(t.Binding); !ok || !ic.Transmit {
					return types.NewConfigError(tf, "unknown transmit interface %q", t.Binding)
				}
			}
		}
		if r.Action.NeedsTargets() && !c.hasTransmitter() {
			return types.NewConfigError(field, "%s requires at least one transmit interface", r.Action)
		}
	}
	return nil
}

func (c *Config) hasTransmitter() bool {
	for _, ic := range c.Interfaces {
		if ic.Transmit {
			return true
		}
	}
	return false
}

func (m MatchConfig) validate(field string) error {
	if m.DstAddr != "" {
		if _, err := netip.ParseAddr(m.DstAddr); err != nil {
			return types.NewConfigError(field+".dst_addr", "invalid address %q", m.DstAddr)
		}
	}
	if m.SrcCIDR != "" {
		if _, err := ParsePrefix(m.SrcCIDR); err != nil {
			return &types.ConfigError{Field: field + ".src_cidr", Err: err}
		}
	}
	if m.ST != "" {
		if _, err := path.Match(m.ST, ""); err != nil {
			return types.NewConfigError(field+".st", "invalid glob %q", m.ST)
		}
	}
	if strings.ContainsAny(m.Method, " \t\r\n") {
		return types.NewConfigError(field+".method", "invalid method %q", m.Method)
	}
	return nil
}
