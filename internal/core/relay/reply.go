package relay

import (
	"context"
	"net/netip"
	"strings"

	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// ============================================================================
//                              回复回送
// ============================================================================

// requester 经某个发送绑定发出的搜索的原请求方
type requester struct {
	egress string
	src    netip.AddrPort
	iface  string
	st     string
}

// remember 记录经 egress 发出的搜索的请求方，供回复读循环回送响应
func (c *Core) remember(egress Endpoint, env types.Envelope, st string) {
	if c.pending == nil || !env.Src().IsValid() || env.Src().Port() == 0 {
		return
	}
	r := requester{
		egress: egress.Name(),
		src:    env.Src(),
		iface:  env.Interface(),
		st:     st,
	}
	c.pending.Add(r.egress+"|"+r.src.String()+"|"+st, r)
}

// requesters 返回在 egress 上等待 st 响应的请求方
func (c *Core) requesters(egress, st string) []requester {
	if c.pending == nil {
		return nil
	}
	var out []requester
	for _, r := range c.pending.Values() {
		if r.egress != egress {
			continue
		}
		if r.st == ssdp.SearchAll || strings.EqualFold(r.st, st) {
			out = append(out, r)
		}
	}
	return out
}

// searchTarget 返回 M-SEARCH 的 ST，非搜索报文返回 false
func searchTarget(payload []byte) (string, bool) {
	msg, err := ssdp.Parse(payload)
	if err != nil || !msg.IsSearch() {
		return "", false
	}
	return strings.TrimSpace(msg.ST()), true
}

// handleReply 处理发送套接字收到的单播数据报
//
// 200 OK 响应按 ST 匹配等待中的请求方，经请求方的接收接口单播回送；
// 没有请求方的响应只产生观测事件。
func (c *Core) handleReply(ctx context.Context, env types.Envelope) {
	msg, err := ssdp.Parse(env.Payload())
	if err != nil || !msg.IsResponse() {
		log.Debug("忽略非响应报文", "iface", env.Interface(), "src", env.Src())
		return
	}

	if d := c.accessFilter().Decide(env); !d.Accept {
		c.record(c.event(env, nil, types.OutcomeRejected).WithReason(d.Reason))
		return
	}

	reqs := c.requesters(env.Interface(), strings.TrimSpace(msg.ST()))
	if len(reqs) == 0 {
		c.record(c.event(env, nil, types.OutcomeUnsolicited))
		return
	}

	for _, r := range reqs {
		target := r.src.String()
		ep, err := c.replyEndpoint(r.iface)
		if err == nil {
			err = c.transport.Send(ctx, ep, types.NewEnvelope(types.EnvelopeParams{
				Dst:     r.src,
				Payload: env.Payload(),
				TTL:     c.cfg.HopLimit,
				Tag:     env.Tag(),
			}))
		}
		if err != nil {
			c.record(c.event(env, nil, types.OutcomeSendFailed).WithTarget(target).WithErr(err))
			continue
		}
		c.record(c.event(env, nil, types.OutcomeReplied).WithTarget(target))
	}
}
