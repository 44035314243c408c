package ssdprelay

import (
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// BindingStats 单个接口绑定的收发计数
type BindingStats = socket.BindingStats

// Stats 中继运行状态快照
type Stats struct {
	// Tag 本实例标记
	Tag types.InstanceTag

	// Received 进入处理流水线的报文数
	Received uint64

	// Replies 发送套接字收到的单播响应数
	Replies uint64

	// Outcomes 按结果统计的决定数
	Outcomes map[types.Outcome]uint64

	// Bindings 每个接口绑定的计数
	Bindings []BindingStats

	// Degraded 因致命读错误停止接收的绑定
	Degraded []string

	// DroppedEvents 观测队列满时丢弃的事件数
	DroppedEvents uint64
}

// Stats 返回运行状态快照
func (r *Relay) Stats() Stats {
	s := Stats{Tag: r.tag}
	if r.core != nil {
		cs := r.core.Stats()
		s.Received = cs.Received
		s.Replies = cs.Replies
		s.Outcomes = cs.Outcomes
		s.Degraded = cs.Degraded
	}
	if r.sockets != nil {
		s.Bindings = r.sockets.BindingStats()
	}
	if r.fanout != nil {
		s.DroppedEvents = r.fanout.Dropped()
	}
	return s
}
