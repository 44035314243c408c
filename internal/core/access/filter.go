package access

import (
	"net/netip"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("access")

// Decision 访问控制判定结果
type Decision struct {
	// Accept 是否放行
	Accept bool
	// Reason 拒绝原因，放行时为 ReasonNone
	Reason types.RejectReason
}

// acceptDecision 放行
var acceptDecision = Decision{Accept: true}

func reject(reason types.RejectReason) Decision {
	return Decision{Reason: reason}
}

// RuleSet 编译后的访问规则
type RuleSet struct {
	// AllowCIDRs 非空时只放行匹配的源地址
	AllowCIDRs []netip.Prefix

	// BlockCIDRs 匹配的源地址一律拒绝
	BlockCIDRs []netip.Prefix

	// BlockSelf 拒绝本实例的报文
	BlockSelf bool
}

// Filter 地址过滤器
//
// 构造后不可变；WithSelfAddrs 返回新的 Filter。
type Filter struct {
	rules RuleSet

	// tag 本进程实例标记
	tag types.InstanceTag

	// selfAddrs 本进程发送套接字的本地地址
	selfAddrs map[netip.AddrPort]struct{}
}

// NewFilter 创建过滤器
func NewFilter(rules RuleSet, tag types.InstanceTag) *Filter {
	return &Filter{
		rules:     cloneRuleSet(rules),
		tag:       tag,
		selfAddrs: map[netip.AddrPort]struct{}{},
	}
}

// Compile 从配置编译过滤器，CIDR 非法时返回 ConfigError
func Compile(cfg config.AccessConfig, tag types.InstanceTag) (*Filter, error) {
	allow, err := config.ParsePrefixes("access.allow_cidrs", cfg.AllowCIDRs)
	if err != nil {
		return nil, err
	}
	block, err := config.ParsePrefixes("access.block_cidrs", cfg.BlockCIDRs)
	if err != nil {
		return nil, err
	}

	if len(block) > 0 || len(allow) > 0 {
		log.Debug("访问控制已编译", "block", len(block), "allow", len(allow), "blockSelf", cfg.BlockSelf)
	}

	return NewFilter(RuleSet{
		AllowCIDRs: allow,
		BlockCIDRs: block,
		BlockSelf:  cfg.BlockSelf,
	}, tag), nil
}

// WithSelfAddrs 返回额外识别这些本地发送地址的新过滤器
//
// 来自这些地址的报文在 BlockSelf 打开时视为自身输出，
// 即使报文没有携带实例标记。
func (f *Filter) WithSelfAddrs(addrs []netip.AddrPort) *Filter {
	out := &Filter{
		rules:     f.rules,
		tag:       f.tag,
		selfAddrs: make(map[netip.AddrPort]struct{}, len(f.selfAddrs)+len(addrs)),
	}
	for a := range f.selfAddrs {
		out.selfAddrs[a] = struct{}{}
	}
	for _, a := range addrs {
		out.selfAddrs[netip.AddrPortFrom(a.Addr().Unmap(), a.Port())] = struct{}{}
	}
	return out
}

// Tag 返回本进程实例标记
func (f *Filter) Tag() types.InstanceTag {
	return f.tag
}

// Rules 返回规则副本
func (f *Filter) Rules() RuleSet {
	return cloneRuleSet(f.rules)
}

// Decide 判定报文是否放行
//
// 无副作用，结果只取决于报文和构造时的规则。
func (f *Filter) Decide(env types.Envelope) Decision {
	if f.rules.BlockSelf && f.isSelf(env) {
		return reject(types.ReasonSelfLoop)
	}

	src := env.SrcAddr()

	// 检查阻止列表
	if containsAny(f.rules.BlockCIDRs, src) {
		return reject(types.ReasonBlockedCIDR)
	}

	// 检查允许列表
	if len(f.rules.AllowCIDRs) > 0 && !containsAny(f.rules.AllowCIDRs, src) {
		return reject(types.ReasonNotAllowlisted)
	}

	return acceptDecision
}

// isSelf 报文是否为本实例的输出
func (f *Filter) isSelf(env types.Envelope) bool {
	if env.Tag().Equal(f.tag) {
		return true
	}
	_, ok := f.selfAddrs[env.Src()]
	return ok
}

// containsAny 前缀包含判断，无效地址不匹配任何前缀
func containsAny(prefixes []netip.Prefix, addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func cloneRuleSet(r RuleSet) RuleSet {
	return RuleSet{
		AllowCIDRs: append([]netip.Prefix(nil), r.AllowCIDRs...),
		BlockCIDRs: append([]netip.Prefix(nil), r.BlockCIDRs...),
		BlockSelf:  r.BlockSelf,
	}
}
