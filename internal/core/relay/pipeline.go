package relay

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/dep2p/go-ssdprelay/internal/core/dispatch"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// handle 对一个接收报文执行完整流水线
func (c *Core) handle(ctx context.Context, env types.Envelope) {
	env = c.admit(env)

	if d := c.accessFilter().Decide(env); !d.Accept {
		c.record(c.event(env, nil, types.OutcomeRejected).WithReason(d.Reason))
		return
	}

	if c.responder != nil {
		c.responder.Observe(env)
	}

	rule := c.dispatcher.Classify(env)
	switch rule.Action {
	case types.ActionForward:
		c.forward(ctx, env, rule)
	case types.ActionProxy:
		c.proxy(ctx, env, rule)
	case types.ActionDial:
		c.dial(ctx, env, rule)
	default:
		c.record(c.event(env, rule, types.OutcomeBlocked))
	}
}

// admit 计算报文的跳数预算
//
// 客户端报文（无实例标记）固定从 HopLimit 开始，组播客户端通常以 TTL 1 发出。
// 已被其它实例中继过的报文在 UseIPTTL 时取 IP TTL 与 HopLimit 的较小值
// （IP TTL 未知时为 HopLimit），使跳数在实例之间延续。
func (c *Core) admit(env types.Envelope) types.Envelope {
	hop := c.cfg.HopLimit
	if c.cfg.UseIPTTL && !env.Tag().IsEmpty() && env.TTL() > 0 && env.TTL() < hop {
		hop = env.TTL()
	}
	return env.Rewrite(types.WithTTL(hop))
}

// ============================================================================
//                              forward
// ============================================================================

func (c *Core) forward(ctx context.Context, env types.Envelope, rule *dispatch.Rule) {
	ttl := env.TTL() - 1
	if ttl <= 0 {
		c.record(c.event(env, rule, types.OutcomeTTLExhausted))
		return
	}
	out := env.Rewrite(types.WithTTL(ttl))
	st, isSearch := searchTarget(env.Payload())

	var sent []string
	for _, t := range rule.Targets {
		ep, dst, err := c.resolveTarget(t, env.Interface())
		if err == nil {
			err = c.transport.Send(ctx, ep, out.Rewrite(types.WithDst(dst)))
		}
		if err != nil {
			c.record(c.event(env, rule, types.OutcomeSendFailed).WithTarget(t.String()).WithErr(err))
			continue
		}
		if isSearch {
			c.remember(ep, env, st)
		}
		sent = append(sent, t.String())
	}
	if len(sent) > 0 {
		c.record(c.event(env, rule, types.OutcomeForwarded).WithTarget(strings.Join(sent, ",")))
	}
}

// resolveTarget 将规则目标解析为发送绑定与目的地址
//
// 绑定目标发往该绑定的组播组；地址目标经接收绑定单播发出，
// 接收绑定不可发送时使用第一个发送绑定。
func (c *Core) resolveTarget(t types.Target, recvIface string) (Endpoint, netip.AddrPort, error) {
	if t.IsBinding() {
		ep, ok := c.endpoint(t.Binding)
		if !ok || !ep.CanTransmit() {
			return nil, netip.AddrPort{}, fmt.Errorf("%w: %s", ErrUnknownTarget, t.Binding)
		}
		return ep, netip.AddrPortFrom(ep.Group(), c.cfg.Port), nil
	}
	ep, err := c.replyEndpoint(recvIface)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	return ep, t.Addr, nil
}

// replyEndpoint 返回用于单播发送的绑定
func (c *Core) replyEndpoint(recvIface string) (Endpoint, error) {
	if ep, ok := c.endpoint(recvIface); ok && ep.CanTransmit() {
		return ep, nil
	}
	if ep, ok := c.firstTransmitter(); ok {
		return ep, nil
	}
	return nil, ErrNoTransmitter
}

// ============================================================================
//                              proxy
// ============================================================================

func (c *Core) proxy(ctx context.Context, env types.Envelope, rule *dispatch.Rule) {
	if c.responder == nil {
		c.record(c.event(env, rule, types.OutcomeNoResponse).WithErr(fmt.Errorf("relay: proxy responder not configured")))
		return
	}
	payloads, err := c.responder.Respond(env)
	if err != nil || len(payloads) == 0 {
		c.record(c.event(env, rule, types.OutcomeNoResponse).WithErr(err))
		return
	}

	ep, err := c.replyEndpoint(env.Interface())
	if err != nil {
		c.record(c.event(env, rule, types.OutcomeSendFailed).WithTarget(env.Src().String()).WithErr(err))
		return
	}

	sent := 0
	for _, p := range payloads {
		reply := types.NewEnvelope(types.EnvelopeParams{
			Dst:     env.Src(),
			Payload: p,
			TTL:     c.cfg.HopLimit,
			Tag:     c.tag,
		})
		if err := c.transport.Send(ctx, ep, reply); err != nil {
			c.record(c.event(env, rule, types.OutcomeSendFailed).WithTarget(env.Src().String()).WithErr(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		c.record(c.event(env, rule, types.OutcomeProxied).WithTarget(env.Src().String()))
	}
}

// ============================================================================
//                              dial
// ============================================================================

func (c *Core) dial(ctx context.Context, env types.Envelope, rule *dispatch.Rule) {
	msg, err := ssdp.Parse(env.Payload())
	if err != nil || !msg.IsSearch() {
		c.record(c.event(env, rule, types.OutcomeNoResponse).WithErr(ErrNotSearch))
		return
	}

	st := strings.TrimSpace(msg.ST())
	if st == "" {
		st = c.cfg.DialST
	}
	mx := msg.MX()
	if mx <= 0 {
		mx = c.cfg.DialMX
	}
	if mx > 5 {
		mx = 5
	}

	for _, t := range rule.Targets {
		target := t.String()
		key := st + "|" + target
		if c.dedupe != nil && c.dedupe.Contains(key) {
			c.record(c.event(env, rule, types.OutcomeDeduped).WithTarget(target))
			continue
		}
		if !c.limiter.Allow() {
			c.record(c.event(env, rule, types.OutcomeRateLimited).WithTarget(target))
			continue
		}
		ep, dst, err := c.resolveTarget(t, env.Interface())
		if err != nil {
			c.record(c.event(env, rule, types.OutcomeSendFailed).WithTarget(target).WithErr(err))
			continue
		}

		search := types.NewEnvelope(types.EnvelopeParams{
			Dst: dst,
			Payload: ssdp.BuildSearch(ssdp.SearchParams{
				Host: dst.String(),
				ST:   st,
				MX:   mx,
				Tag:  c.tag,
			}),
			TTL: c.cfg.DialTTL,
			Tag: c.tag,
		})
		if err := c.transport.Send(ctx, ep, search); err != nil {
			c.record(c.event(env, rule, types.OutcomeSendFailed).WithTarget(target).WithErr(err))
			continue
		}
		// 只记录发送成功的探测，失败后下一次搜索可立即重试
		if c.dedupe != nil {
			c.dedupe.Add(key, struct{}{})
		}
		c.remember(ep, env, st)
		c.record(c.event(env, rule, types.OutcomeDialed).WithTarget(target))
	}
}

// ============================================================================
//                              观测
// ============================================================================

// event 以原报文和命中规则填充事件
func (c *Core) event(env types.Envelope, rule *dispatch.Rule, outcome types.Outcome) observe.Event {
	e := observe.Event{
		Outcome:   outcome,
		Interface: env.Interface(),
		Src:       env.Src(),
		Dst:       env.Dst(),
		TTL:       env.TTL(),
		Tag:       env.Tag(),
	}
	if rule != nil {
		e.Rule = rule.Name
		e.Action = rule.Action
	}
	return e
}

func (c *Core) record(e observe.Event) {
	if n, ok := c.outcomes[e.Outcome]; ok {
		n.Add(1)
	}
	c.sink.Observe(e)
}
