package observe

import (
	"net/netip"
	"time"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Event 一次决策或动作结果
type Event struct {
	// Time 事件时间
	Time time.Time

	// Outcome 结果
	Outcome types.Outcome

	// Reason 访问控制拒绝原因，仅 Outcome 为 rejected 时有效
	Reason types.RejectReason

	// Rule 命中的规则名
	Rule string

	// Action 命中规则的动作
	Action types.Action

	// Interface 接收接口
	Interface string

	// Target 动作目标（绑定名或 ip:port）
	Target string

	// Src / Dst 原报文地址
	Src netip.AddrPort
	Dst netip.AddrPort

	// TTL 原报文跳数
	TTL int

	// Tag 原报文实例标记
	Tag types.InstanceTag

	// Err 发送失败等错误
	Err error
}

// Sink 观测接收端，实现必须并发安全且不阻塞
type Sink interface {
	Observe(Event)
}

// SinkFunc 函数适配器
type SinkFunc func(Event)

// Observe 实现 Sink
func (f SinkFunc) Observe(e Event) { f(e) }

// Nop 丢弃所有事件
var Nop Sink = SinkFunc(func(Event) {})

// Multi 依次同步调用每个 Sink
func Multi(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range out {
			s.Observe(e)
		}
	})
}

// WithReason 返回设置了拒绝原因的副本
func (e Event) WithReason(r types.RejectReason) Event {
	e.Reason = r
	return e
}

// WithTarget 返回设置了目标的副本
func (e Event) WithTarget(target string) Event {
	e.Target = target
	return e
}

// WithErr 返回设置了错误的副本
func (e Event) WithErr(err error) Event {
	e.Err = err
	return e
}
