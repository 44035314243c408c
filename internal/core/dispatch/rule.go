package dispatch

import (
	"net/netip"
	"path"
	"strings"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// DefaultRuleName 隐式默认规则名
const DefaultRuleName = "default"

// Rule 编译后的路由规则
type Rule struct {
	// Name 规则名
	Name string

	// Index 规则在配置中的位置，默认规则为 -1
	Index int

	// Action 动作
	Action types.Action

	// Targets forward/dial 的目标
	Targets []types.Target

	match matcher
}

// IsDefault 是否为隐式默认规则
func (r *Rule) IsDefault() bool {
	return r.Index < 0
}

// String 返回 "name: action -> targets" 形式的描述
func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(": ")
	b.WriteString(r.Action.String())
	if len(r.Targets) > 0 {
		b.WriteString(" -> ")
		for i, t := range r.Targets {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(t.String())
		}
	}
	return b.String()
}

// matcher 编译后的匹配条件，零值匹配一切
type matcher struct {
	iface   string
	dstPort uint16
	dstAddr netip.Addr
	srcNet  netip.Prefix
	method  string
	stGlob  string
}

// matches 判断报文是否满足所有条件
func (m *matcher) matches(env types.Envelope, v *payloadView) bool {
	if m.iface != "" && env.Interface() != m.iface {
		return false
	}
	if m.dstPort != 0 && env.DstPort() != m.dstPort {
		return false
	}
	if m.dstAddr.IsValid() && env.DstAddr() != m.dstAddr {
		return false
	}
	if m.srcNet.IsValid() && !m.srcNet.Contains(env.SrcAddr()) {
		return false
	}
	if m.method != "" && !strings.EqualFold(v.method(), m.method) {
		return false
	}
	if m.stGlob != "" {
		st, ok := v.st()
		if !ok {
			return false
		}
		if matched, _ := path.Match(m.stGlob, st); !matched {
			return false
		}
	}
	return true
}

func compileMatch(field string, mc config.MatchConfig) (matcher, error) {
	m := matcher{
		iface:   mc.Interface,
		dstPort: mc.DstPort,
		method:  strings.TrimSpace(mc.Method),
		stGlob:  mc.ST,
	}
	if mc.DstAddr != "" {
		addr, err := netip.ParseAddr(mc.DstAddr)
		if err != nil {
			return matcher{}, types.NewConfigError(field+".dst_addr", "invalid address %q", mc.DstAddr)
		}
		m.dstAddr = addr.Unmap()
	}
	if mc.SrcCIDR != "" {
		p, err := config.ParsePrefix(mc.SrcCIDR)
		if err != nil {
			return matcher{}, &types.ConfigError{Field: field + ".src_cidr", Err: err}
		}
		m.srcNet = p
	}
	if mc.ST != "" {
		if _, err := path.Match(mc.ST, ""); err != nil {
			return matcher{}, types.NewConfigError(field+".st", "invalid glob %q", mc.ST)
		}
	}
	return m, nil
}

// payloadView 单次 Classify 内的报文惰性解析结果
type payloadView struct {
	env types.Envelope

	methodDone bool
	methodVal  string

	stDone bool
	stVal  string
	stOK   bool
}

func (v *payloadView) method() string {
	if !v.methodDone {
		v.methodDone = true
		_ = v.env.WritePayloadTo(func(b []byte) error {
			v.methodVal = ssdp.Method(b)
			return nil
		})
	}
	return v.methodVal
}

func (v *payloadView) st() (string, bool) {
	if !v.stDone {
		v.stDone = true
		_ = v.env.WritePayloadTo(func(b []byte) error {
			msg, err := ssdp.Parse(b)
			if err != nil {
				return err
			}
			v.stVal = strings.TrimSpace(msg.ST())
			v.stOK = v.stVal != ""
			return nil
		})
	}
	return v.stVal, v.stOK
}
