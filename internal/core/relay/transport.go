package relay

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Endpoint 一个已打开的接口绑定
//
// *socket.Binding 实现该接口。
type Endpoint interface {
	Name() string
	CanReceive() bool
	CanTransmit() bool
	Group() netip.Addr
	MarkDegraded()
	Degraded() bool
}

// Transport 中继核心使用的收发抽象
type Transport interface {
	// Open 打开所有配置的绑定
	Open(ctx context.Context) ([]Endpoint, error)

	// Receive 阻塞读取 ep 上的下一个报文
	Receive(ctx context.Context, ep Endpoint) (types.Envelope, error)

	// ReceiveReply 阻塞读取 ep 发送套接字收到的下一个单播响应
	ReceiveReply(ctx context.Context, ep Endpoint) (types.Envelope, error)

	// Send 经 ep 发送 env
	Send(ctx context.Context, ep Endpoint, env types.Envelope) error

	// LocalAddrs 返回本机发送套接字地址
	LocalAddrs() []netip.AddrPort

	// Close 关闭所有绑定
	Close() error
}

// ============================================================================
//                              SocketTransport - 套接字实现
// ============================================================================

// SocketTransport 基于 socket.Manager 的 Transport
type SocketTransport struct {
	manager  *socket.Manager
	bindings []socket.BindingConfig
}

var _ Transport = (*SocketTransport)(nil)
var _ Endpoint = (*socket.Binding)(nil)

// NewSocketTransport 创建套接字 Transport
func NewSocketTransport(m *socket.Manager, bindings []socket.BindingConfig) *SocketTransport {
	return &SocketTransport{manager: m, bindings: bindings}
}

// Open 实现 Transport
func (t *SocketTransport) Open(ctx context.Context) ([]Endpoint, error) {
	bs, err := t.manager.Open(ctx, t.bindings)
	if err != nil {
		return nil, err
	}
	out := make([]Endpoint, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out, nil
}

// Receive 实现 Transport
func (t *SocketTransport) Receive(ctx context.Context, ep Endpoint) (types.Envelope, error) {
	b, err := asBinding(ep)
	if err != nil {
		return types.Envelope{}, err
	}
	return t.manager.Receive(ctx, b)
}

// ReceiveReply 实现 Transport
func (t *SocketTransport) ReceiveReply(ctx context.Context, ep Endpoint) (types.Envelope, error) {
	b, err := asBinding(ep)
	if err != nil {
		return types.Envelope{}, err
	}
	return t.manager.ReceiveReply(ctx, b)
}

// Send 实现 Transport
func (t *SocketTransport) Send(ctx context.Context, ep Endpoint, env types.Envelope) error {
	b, err := asBinding(ep)
	if err != nil {
		return err
	}
	return t.manager.Send(ctx, b, env)
}

// LocalAddrs 实现 Transport
func (t *SocketTransport) LocalAddrs() []netip.AddrPort {
	return t.manager.LocalAddrs()
}

// Close 实现 Transport
func (t *SocketTransport) Close() error {
	return t.manager.Close()
}

func asBinding(ep Endpoint) (*socket.Binding, error) {
	b, ok := ep.(*socket.Binding)
	if !ok {
		return nil, fmt.Errorf("relay: endpoint %s is not a socket binding", ep.Name())
	}
	return b, nil
}
