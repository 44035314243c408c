package config

import (
	"fmt"
	"net/netip"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// AccessConfig 访问控制配置
//
// 阻止规则总是优先于允许规则。
type AccessConfig struct {
	// BlockSelf 丢弃携带本实例标记的报文（blockid）
	BlockSelf bool `json:"block_self"`

	// AllowCIDRs 非空时只放行匹配的源地址
	AllowCIDRs []string `json:"allow_cidrs,omitempty"`

	// BlockCIDRs 匹配的源地址一律拒绝
	BlockCIDRs []string `json:"block_cidrs,omitempty"`
}

// DefaultAccessConfig 返回默认访问控制配置
func DefaultAccessConfig() AccessConfig {
	return AccessConfig{
		BlockSelf: true,
	}
}

// Validate 验证访问控制配置
func (c AccessConfig) Validate() error {
	if _, err := ParsePrefixes("access.allow_cidrs", c.AllowCIDRs); err != nil {
		return err
	}
	if _, err := ParsePrefixes("access.block_cidrs", c.BlockCIDRs); err != nil {
		return err
	}
	return nil
}

// ParsePrefixes 解析 CIDR 列表，裸地址视为 /32
//
// 前缀会被规范化（主机位清零）。
func ParsePrefixes(field string, cidrs []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(cidrs))
	for i, s := range cidrs {
		p, err := ParsePrefix(s)
		if err != nil {
			return nil, &types.ConfigError{Field: fmt.Sprintf("%s[%d]", field, i), Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}

// ParsePrefix 解析单个 CIDR
func ParsePrefix(s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		addr, aerr := netip.ParseAddr(s)
		if aerr != nil {
			return netip.Prefix{}, fmt.Errorf("malformed CIDR %q", s)
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	if p.Addr().Is4In6() {
		bits := p.Bits() - 96
		if bits < 0 {
			return netip.Prefix{}, fmt.Errorf("malformed CIDR %q", s)
		}
		p = netip.PrefixFrom(p.Addr().Unmap(), bits)
	}
	return p.Masked(), nil
}
