package types

import (
	"bytes"
	"fmt"
	"net/netip"
)

// DefaultTTL 合成报文（dial 发起的请求）的默认跳数
const DefaultTTL = 4

// ============================================================================
//                              Envelope - 报文信封
// ============================================================================

// Envelope 描述一个入站或出站数据报及其路由元数据
//
// Envelope 是不可变值：字段只能通过访问器读取，
// 改写通过 Rewrite 产生新的 Envelope。
type Envelope struct {
	src     netip.AddrPort
	dst     netip.AddrPort
	iface   string
	payload []byte
	ttl     int
	tag     InstanceTag
}

// EnvelopeParams 构造 Envelope 的参数
type EnvelopeParams struct {
	// Src 线上观察到的源地址与端口
	Src netip.AddrPort

	// Dst 目的地址与端口（单播或组播组）
	Dst netip.AddrPort

	// Interface 接收接口名，合成的出站报文为空
	Interface string

	// Payload 报文内容（会被复制）
	Payload []byte

	// TTL 剩余跳数
	TTL int

	// Tag 实例标记，未知时为空
	Tag InstanceTag
}

// NewEnvelope 创建 Envelope
func NewEnvelope(p EnvelopeParams) Envelope {
	return Envelope{
		src:     unmapAddrPort(p.Src),
		dst:     unmapAddrPort(p.Dst),
		iface:   p.Interface,
		payload: bytes.Clone(p.Payload),
		ttl:     p.TTL,
		tag:     p.Tag,
	}
}

// SrcAddr 返回源地址
func (e Envelope) SrcAddr() netip.Addr { return e.src.Addr() }

// SrcPort 返回源端口
func (e Envelope) SrcPort() uint16 { return e.src.Port() }

// Src 返回源地址与端口
func (e Envelope) Src() netip.AddrPort { return e.src }

// DstAddr 返回目的地址
func (e Envelope) DstAddr() netip.Addr { return e.dst.Addr() }

// DstPort 返回目的端口
func (e Envelope) DstPort() uint16 { return e.dst.Port() }

// Dst 返回目的地址与端口
func (e Envelope) Dst() netip.AddrPort { return e.dst }

// Interface 返回接收接口名
func (e Envelope) Interface() string { return e.iface }

// Payload 返回报文内容的副本
func (e Envelope) Payload() []byte { return bytes.Clone(e.payload) }

// PayloadLen 返回报文长度
func (e Envelope) PayloadLen() int { return len(e.payload) }

// TTL 返回剩余跳数
func (e Envelope) TTL() int { return e.ttl }

// Tag 返回实例标记
func (e Envelope) Tag() InstanceTag { return e.tag }

// WritePayloadTo 将报文内容交给 fn 读取，fn 不得保留或修改切片
//
// 用于发送路径避免多余复制。
func (e Envelope) WritePayloadTo(fn func([]byte) error) error {
	return fn(e.payload)
}

// IsZero 检查是否为零值
func (e Envelope) IsZero() bool {
	return !e.src.IsValid() && !e.dst.IsValid() && e.iface == "" &&
		len(e.payload) == 0 && e.ttl == 0 && e.tag.IsEmpty()
}

// Equal 比较两个 Envelope 是否相等（Payload 按字节比较）
func (e Envelope) Equal(other Envelope) bool {
	return e.src == other.src &&
		e.dst == other.dst &&
		e.iface == other.iface &&
		e.ttl == other.ttl &&
		e.tag == other.tag &&
		bytes.Equal(e.payload, other.payload)
}

// String 返回便于日志输出的简短描述
func (e Envelope) String() string {
	return fmt.Sprintf("%s -> %s iface=%q ttl=%d len=%d tag=%s",
		e.src, e.dst, e.iface, e.ttl, len(e.payload), e.tag.ShortString())
}

// ============================================================================
//                              Rewrite - 改写
// ============================================================================

// Override 字段改写选项
type Override func(*Envelope)

// Rewrite 返回应用改写后的新 Envelope，原值不变
//
// 不传入任何改写或改写为当前值时，结果与原值 Equal。
func (e Envelope) Rewrite(overrides ...Override) Envelope {
	out := e
	out.payload = bytes.Clone(e.payload)
	for _, o := range overrides {
		o(&out)
	}
	return out
}

// WithSrcAddr 改写源地址（"overwrite source IP"）
func WithSrcAddr(addr netip.Addr) Override {
	return func(e *Envelope) {
		e.src = netip.AddrPortFrom(addr.Unmap(), e.src.Port())
	}
}

// WithSrcPort 改写源端口
func WithSrcPort(port uint16) Override {
	return func(e *Envelope) {
		e.src = netip.AddrPortFrom(e.src.Addr(), port)
	}
}

// WithSrcPortFromDst 将源端口设为目的端口（"set source port to destination port"）
func WithSrcPortFromDst() Override {
	return func(e *Envelope) {
		e.src = netip.AddrPortFrom(e.src.Addr(), e.dst.Port())
	}
}

// WithDst 改写目的地址与端口
func WithDst(dst netip.AddrPort) Override {
	return func(e *Envelope) {
		e.dst = unmapAddrPort(dst)
	}
}

// WithInterface 改写接口名
func WithInterface(name string) Override {
	return func(e *Envelope) {
		e.iface = name
	}
}

// WithPayload 改写报文内容
func WithPayload(payload []byte) Override {
	return func(e *Envelope) {
		e.payload = bytes.Clone(payload)
	}
}

// WithTTL 改写剩余跳数
func WithTTL(ttl int) Override {
	return func(e *Envelope) {
		e.ttl = ttl
	}
}

// WithTag 改写实例标记
func WithTag(tag InstanceTag) Override {
	return func(e *Envelope) {
		e.tag = tag
	}
}

func unmapAddrPort(ap netip.AddrPort) netip.AddrPort {
	if !ap.IsValid() {
		return ap
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
