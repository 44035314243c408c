package socket

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"time"

	tec "github.com/jbenet/go-temp-err-catcher"
	"golang.org/x/net/ipv4"

	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// ============================================================================
//                              Receive - 接收
// ============================================================================

// Receive 阻塞读取绑定上的下一个数据报
//
// 返回的 Envelope.TTL 为 IP 头中的 TTL，平台不提供时为 0。
// 瞬时错误在内部退避重试；套接字关闭返回 types.ErrBindingClosed；
// 其它错误返回 Fatal 的 *types.IOError。同一绑定只能有一个读者。
func (m *Manager) Receive(ctx context.Context, b *Binding) (types.Envelope, error) {
	if !b.receive || b.rx == nil {
		return types.Envelope{}, types.ErrDirectionDisabled
	}

	for {
		n, cm, src, err := m.read(ctx, b, b.rx, b.readBuf, &b.catcher, "receive")
		if err != nil {
			return types.Envelope{}, err
		}
		if !b.acceptsInterface(cm) {
			continue
		}

		b.received.Add(1)
		return b.envelope(b.readBuf[:n], cm, src), nil
	}
}

// ReceiveReply 阻塞读取发送套接字上的下一个单播数据报
//
// 经发送套接字发出的搜索，其 200 OK 响应回到该套接字。
// 错误语义与 Receive 相同；同一绑定只能有一个回复读者。
func (m *Manager) ReceiveReply(ctx context.Context, b *Binding) (types.Envelope, error) {
	if !b.transmit || b.tx == nil {
		return types.Envelope{}, types.ErrDirectionDisabled
	}

	n, _, src, err := m.read(ctx, b, b.tx, b.replyBuf, &b.replyCatcher, "receive-reply")
	if err != nil {
		return types.Envelope{}, err
	}
	b.replies.Add(1)

	payload := b.replyBuf[:n]
	return types.NewEnvelope(types.EnvelopeParams{
		Src:       udpAddrPort(src),
		Dst:       b.txAddr,
		Interface: b.name,
		Payload:   payload,
		Tag:       ssdp.InstanceTag(payload),
	}), nil
}

// read 以轮询截止时间读取 conn，瞬时错误按 catcher 退避后重试
func (m *Manager) read(ctx context.Context, b *Binding, conn *ipv4.PacketConn, buf []byte, catcher *tec.TempErrCatcher, op string) (int, *ipv4.ControlMessage, net.Addr, error) {
	catcher.IsTemp = isTransient
	catcher.Start = m.cfg.RetryBackoff
	catcher.Max = m.cfg.MaxBackoff
	catcher.Wait = func(d time.Duration) { sleepCtx(ctx, d) }

	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, nil, err
		}
		if b.closed.Load() {
			return 0, nil, nil, types.ErrBindingClosed
		}

		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.PollInterval))
		n, cm, src, err := conn.ReadFrom(buf)
		if err != nil {
			switch {
			case errors.Is(err, net.ErrClosed):
				return 0, nil, nil, types.ErrBindingClosed
			case errors.Is(err, os.ErrDeadlineExceeded):
				continue
			case catcher.IsTemporary(err):
				log.Debug("瞬时读错误，重试", "iface", b.name, "op", op, "err", err)
				continue
			default:
				return 0, nil, nil, &types.IOError{Op: op, Interface: b.name, Fatal: true, Err: err}
			}
		}
		catcher.Reset()
		return n, cm, src, nil
	}
}

// acceptsInterface 丢弃从其它接口收到的报文
func (b *Binding) acceptsInterface(cm *ipv4.ControlMessage) bool {
	if cm == nil || cm.IfIndex == 0 || b.ifi == nil {
		return true
	}
	return cm.IfIndex == b.ifi.Index
}

func (b *Binding) envelope(payload []byte, cm *ipv4.ControlMessage, src net.Addr) types.Envelope {
	p := types.EnvelopeParams{
		Src:       udpAddrPort(src),
		Interface: b.name,
		Payload:   payload,
		Tag:       ssdp.InstanceTag(payload),
	}

	dst := b.rxAddr.Addr()
	if cm != nil {
		p.TTL = cm.TTL
		if a, ok := netip.AddrFromSlice(cm.Dst); ok && !a.IsUnspecified() {
			dst = a.Unmap()
		}
	}
	if dst.IsUnspecified() && len(b.groups) > 0 {
		dst = b.groups[0]
	}
	p.Dst = netip.AddrPortFrom(dst, b.rxAddr.Port())
	return types.NewEnvelope(p)
}

// ============================================================================
//                              Send - 发送
// ============================================================================

// Send 经绑定的发送套接字将报文发往 env.Dst()
//
// 按目的地址是否为组播设置组播 TTL 或单播 TTL，TTL 取 env.TTL()（限制在 1..255）。
// 跳数递减由调用方负责。瞬时错误按配置重试，失败返回非 Fatal 的 *types.IOError。
func (m *Manager) Send(ctx context.Context, b *Binding, env types.Envelope) error {
	if !b.transmit || b.tx == nil {
		return types.ErrDirectionDisabled
	}
	if b.closed.Load() {
		return types.ErrBindingClosed
	}
	dst := env.Dst()
	if !dst.IsValid() || dst.Port() == 0 {
		return &types.IOError{Op: "send", Interface: b.name, Err: errors.New("invalid destination " + dst.String())}
	}

	ttl := clampTTL(env.TTL())
	to := net.UDPAddrFromAddrPort(dst)

	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	var err error
	if dst.Addr().IsMulticast() {
		err = b.tx.SetMulticastTTL(ttl)
	} else {
		err = b.tx.SetTTL(ttl)
	}
	if err != nil {
		log.Debug("设置 TTL 失败", "iface", b.name, "ttl", ttl, "err", err)
	}

	backoff := m.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = env.WritePayloadTo(func(p []byte) error {
			_, werr := b.tx.WriteTo(p, nil, to)
			return werr
		})
		if err == nil {
			b.sent.Add(1)
			return nil
		}
		if errors.Is(err, net.ErrClosed) {
			b.sendErrors.Add(1)
			return types.ErrBindingClosed
		}
		if !isTransient(err) || attempt >= m.cfg.SendRetries || ctx.Err() != nil {
			break
		}
		sleepCtx(ctx, backoff)
		backoff *= 2
	}

	b.sendErrors.Add(1)
	return &types.IOError{Op: "send", Interface: b.name, Err: err}
}

func clampTTL(ttl int) int {
	switch {
	case ttl < 1:
		return 1
	case ttl > 255:
		return 255
	default:
		return ttl
	}
}

// sleepCtx 等待 d 或 ctx 取消
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
