package socket

import (
	"net"
	"net/netip"
	"sync"
	"sync/atomic"

	tec "github.com/jbenet/go-temp-err-catcher"
	"golang.org/x/net/ipv4"
)

// ============================================================================
//                              Binding - 接口绑定
// ============================================================================

// Binding 一个已打开的接口绑定
type Binding struct {
	name     string
	receive  bool
	transmit bool
	groups   []netip.Addr
	group    netip.Addr

	ifi       *net.Interface
	ifaceAddr netip.Addr

	rx     *ipv4.PacketConn
	rxAddr netip.AddrPort
	tx     *ipv4.PacketConn
	txAddr netip.AddrPort

	// readBuf 只由单个读循环使用
	readBuf []byte
	catcher tec.TempErrCatcher

	// replyBuf 只由发送套接字的回复读循环使用
	replyBuf     []byte
	replyCatcher tec.TempErrCatcher

	// sendMu 串行化同一绑定上的发送
	sendMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
	degraded  atomic.Bool

	received   atomic.Uint64
	replies    atomic.Uint64
	sent       atomic.Uint64
	sendErrors atomic.Uint64
}

// BindingStats 绑定计数快照
type BindingStats struct {
	Name       string
	Receive    bool
	Transmit   bool
	Received   uint64
	Replies    uint64
	Sent       uint64
	SendErrors uint64
	Degraded   bool
	Closed     bool
}

// Name 返回接口名
func (b *Binding) Name() string { return b.name }

// CanReceive 是否打开了接收套接字
func (b *Binding) CanReceive() bool { return b.receive }

// CanTransmit 是否打开了发送套接字
func (b *Binding) CanTransmit() bool { return b.transmit }

// Groups 返回已加入的组播组
func (b *Binding) Groups() []netip.Addr {
	return append([]netip.Addr(nil), b.groups...)
}

// Group 返回该接口作为转发目标时使用的组播组
func (b *Binding) Group() netip.Addr { return b.group }

// InterfaceAddr 返回接口的 IPv4 地址
func (b *Binding) InterfaceAddr() netip.Addr { return b.ifaceAddr }

// ReceiveAddr 返回接收套接字的本地地址
func (b *Binding) ReceiveAddr() netip.AddrPort { return b.rxAddr }

// TransmitAddr 返回发送套接字的本地地址
func (b *Binding) TransmitAddr() netip.AddrPort { return b.txAddr }

// Port 返回接收端口
func (b *Binding) Port() uint16 { return b.rxAddr.Port() }

// MarkDegraded 标记绑定已降级（读循环因致命错误退出）
func (b *Binding) MarkDegraded() { b.degraded.Store(true) }

// Degraded 是否已降级
func (b *Binding) Degraded() bool { return b.degraded.Load() }

// Closed 是否已关闭
func (b *Binding) Closed() bool { return b.closed.Load() }

// Stats 返回计数快照
func (b *Binding) Stats() BindingStats {
	return BindingStats{
		Name:       b.name,
		Receive:    b.receive,
		Transmit:   b.transmit,
		Received:   b.received.Load(),
		Replies:    b.replies.Load(),
		Sent:       b.sent.Load(),
		SendErrors: b.sendErrors.Load(),
		Degraded:   b.degraded.Load(),
		Closed:     b.closed.Load(),
	}
}

// String 返回便于日志输出的描述
func (b *Binding) String() string {
	dir := ""
	if b.receive {
		dir += "rx"
	}
	if b.transmit {
		dir += "tx"
	}
	return b.name + "/" + dir
}

// device 返回用于 SO_BINDTODEVICE 的系统接口名
func (b *Binding) device() string {
	if b.ifi == nil {
		return ""
	}
	return b.ifi.Name
}

// close 离开组播组并关闭套接字，幂等
func (b *Binding) close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		var errs []error
		if b.rx != nil {
			for _, g := range b.groups {
				// 关闭套接字时内核同样会退出组播组，离开失败不影响结果
				if err := b.rx.LeaveGroup(b.ifi, &net.UDPAddr{IP: g.AsSlice()}); err != nil {
					log.Debug("离开组播组失败", "iface", b.name, "group", g, "err", err)
				}
			}
			errs = append(errs, b.rx.Close())
		}
		if b.tx != nil {
			errs = append(errs, b.tx.Close())
		}
		b.closeErr = combine(errs...)
	})
	return b.closeErr
}
