package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              Action - 分发动作
// ============================================================================

// Action M-SEARCH 分发动作
type Action int

const (
	// ActionBlock 丢弃，无 I/O
	ActionBlock Action = iota
	// ActionForward 原样转发到目标（TTL 减一）
	ActionForward
	// ActionProxy 合成响应发回请求方
	ActionProxy
	// ActionDial 向目标主动发起新的发现请求
	ActionDial
)

// String 返回动作的字符串表示
func (a Action) String() string {
	switch a {
	case ActionBlock:
		return "block"
	case ActionForward:
		return "forward"
	case ActionProxy:
		return "proxy"
	case ActionDial:
		return "dial"
	default:
		return "unknown"
	}
}

// NeedsTargets 该动作是否要求非空目标列表
func (a Action) NeedsTargets() bool {
	return a == ActionForward || a == ActionDial
}

// ParseAction 解析动作名（大小写不敏感）
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return ActionBlock, nil
	case "forward":
		return ActionForward, nil
	case "proxy":
		return ActionProxy, nil
	case "dial":
		return ActionDial, nil
	default:
		return ActionBlock, fmt.Errorf("unknown action %q (want block|forward|proxy|dial)", s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ============================================================================
//                              RejectReason - 拒绝原因
// ============================================================================

// RejectReason 访问控制拒绝原因
type RejectReason string

const (
	// ReasonNone 未拒绝
	ReasonNone RejectReason = ""
	// ReasonSelfLoop 本实例自身的输出
	ReasonSelfLoop RejectReason = "self-loop"
	// ReasonBlockedCIDR 源地址命中阻止列表
	ReasonBlockedCIDR RejectReason = "blocked-cidr"
	// ReasonNotAllowlisted 允许列表非空且源地址不在其中
	ReasonNotAllowlisted RejectReason = "not-allowlisted"
)

// String 返回原因字符串
func (r RejectReason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}

// ============================================================================
//                              Direction - 绑定方向
// ============================================================================

// Direction 接口绑定方向
type Direction int

const (
	// DirReceive 接收
	DirReceive Direction = iota + 1
	// DirTransmit 发送
	DirTransmit
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirReceive:
		return "receive"
	case DirTransmit:
		return "transmit"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Outcome - 决策结果
// ============================================================================

// Outcome 每个报文的最终处理结果（用于观测）
type Outcome string

const (
	// OutcomeRejected 访问控制拒绝
	OutcomeRejected Outcome = "rejected"
	// OutcomeBlocked 分发结果为 block
	OutcomeBlocked Outcome = "blocked"
	// OutcomeForwarded 已转发
	OutcomeForwarded Outcome = "forwarded"
	// OutcomeProxied 已代答
	OutcomeProxied Outcome = "proxied"
	// OutcomeDialed 已发起拨测
	OutcomeDialed Outcome = "dialed"
	// OutcomeTTLExhausted TTL 耗尽被丢弃
	OutcomeTTLExhausted Outcome = "ttl-exhausted"
	// OutcomeRateLimited dial 被限速丢弃
	OutcomeRateLimited Outcome = "rate-limited"
	// OutcomeDeduped dial 在去重窗口内被丢弃
	OutcomeDeduped Outcome = "deduped"
	// OutcomeSendFailed 发送失败
	OutcomeSendFailed Outcome = "send-failed"
	// OutcomeNoResponse proxy 没有可用的响应
	OutcomeNoResponse Outcome = "no-response"
	// OutcomeReplied 搜索响应已回送给原请求方
	OutcomeReplied Outcome = "replied"
	// OutcomeUnsolicited 发送套接字收到的响应没有对应的请求方
	OutcomeUnsolicited Outcome = "unsolicited"
)

// AllOutcomes 返回全部结果取值（用于预注册指标）
func AllOutcomes() []Outcome {
	return []Outcome{
		OutcomeRejected, OutcomeBlocked, OutcomeForwarded, OutcomeProxied,
		OutcomeDialed, OutcomeTTLExhausted, OutcomeRateLimited, OutcomeDeduped,
		OutcomeSendFailed, OutcomeNoResponse, OutcomeReplied, OutcomeUnsolicited,
	}
}
