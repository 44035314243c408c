package relay

import (
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Stats 中继核心计数快照
type Stats struct {
	// Received 进入流水线的报文数
	Received uint64

	// Replies 发送套接字收到的单播响应数
	Replies uint64

	// Outcomes 按结果统计的事件数
	Outcomes map[types.Outcome]uint64

	// Degraded 已降级的绑定
	Degraded []string
}

// Stats 返回计数快照
func (c *Core) Stats() Stats {
	s := Stats{
		Received: c.received.Load(),
		Replies:  c.replies.Load(),
		Outcomes: make(map[types.Outcome]uint64, len(c.outcomes)),
	}
	for o, n := range c.outcomes {
		s.Outcomes[o] = n.Load()
	}

	c.mu.RLock()
	for _, ep := range c.endpoints {
		if ep.Degraded() {
			s.Degraded = append(s.Degraded, ep.Name())
		}
	}
	c.mu.RUnlock()
	return s
}

// Outcome 返回单个结果的计数
func (c *Core) Outcome(o types.Outcome) uint64 {
	if n, ok := c.outcomes[o]; ok {
		return n.Load()
	}
	return 0
}
