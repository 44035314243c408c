package relay

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// fakeEndpoint 测试用绑定
type fakeEndpoint struct {
	name     string
	rx, tx   bool
	group    netip.Addr
	degraded atomic.Bool
}

func newEndpoint(name string, rx, tx bool) *fakeEndpoint {
	return &fakeEndpoint{name: name, rx: rx, tx: tx, group: netip.MustParseAddr(config.DefaultGroup)}
}

func (e *fakeEndpoint) Name() string      { return e.name }
func (e *fakeEndpoint) CanReceive() bool  { return e.rx }
func (e *fakeEndpoint) CanTransmit() bool { return e.tx }
func (e *fakeEndpoint) Group() netip.Addr { return e.group }
func (e *fakeEndpoint) MarkDegraded()     { e.degraded.Store(true) }
func (e *fakeEndpoint) Degraded() bool    { return e.degraded.Load() }

type inbound struct {
	env types.Envelope
	err error
}

type sentPacket struct {
	iface string
	env   types.Envelope
}

// fakeTransport 内存 Transport
//
// OpenFunc / SendFunc 非 nil 时覆盖默认行为。
type fakeTransport struct {
	OpenFunc func(ctx context.Context) ([]Endpoint, error)
	SendFunc func(ep Endpoint, env types.Envelope) error

	eps     []*fakeEndpoint
	inbox   map[string]chan inbound
	replies map[string]chan inbound
	local   []netip.AddrPort

	mu     sync.Mutex
	sent   []sentPacket
	closed atomic.Int32
}

func newFakeTransport(eps ...*fakeEndpoint) *fakeTransport {
	t := &fakeTransport{
		eps:     eps,
		inbox:   make(map[string]chan inbound),
		replies: make(map[string]chan inbound),
	}
	for _, ep := range eps {
		t.inbox[ep.name] = make(chan inbound, 16)
		t.replies[ep.name] = make(chan inbound, 16)
	}
	return t
}

func (t *fakeTransport) Open(ctx context.Context) ([]Endpoint, error) {
	if t.OpenFunc != nil {
		return t.OpenFunc(ctx)
	}
	out := make([]Endpoint, len(t.eps))
	for i, ep := range t.eps {
		out[i] = ep
	}
	return out, nil
}

func (t *fakeTransport) Receive(ctx context.Context, ep Endpoint) (types.Envelope, error) {
	select {
	case in := <-t.inbox[ep.Name()]:
		return in.env, in.err
	case <-ctx.Done():
		return types.Envelope{}, ctx.Err()
	}
}

func (t *fakeTransport) ReceiveReply(ctx context.Context, ep Endpoint) (types.Envelope, error) {
	select {
	case in := <-t.replies[ep.Name()]:
		return in.env, in.err
	case <-ctx.Done():
		return types.Envelope{}, ctx.Err()
	}
}

func (t *fakeTransport) Send(_ context.Context, ep Endpoint, env types.Envelope) error {
	if t.SendFunc != nil {
		if err := t.SendFunc(ep, env); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentPacket{iface: ep.Name(), env: env})
	return nil
}

func (t *fakeTransport) LocalAddrs() []netip.AddrPort { return t.local }

func (t *fakeTransport) Close() error {
	t.closed.Add(1)
	return nil
}

func (t *fakeTransport) deliver(iface string, env types.Envelope) {
	t.inbox[iface] <- inbound{env: env}
}

// reply 模拟设备发往 iface 发送套接字的单播响应
func (t *fakeTransport) reply(iface string, env types.Envelope) {
	t.replies[iface] <- inbound{env: env}
}

func (t *fakeTransport) fail(iface string, err error) {
	t.inbox[iface] <- inbound{err: err}
}

func (t *fakeTransport) Sent() []sentPacket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentPacket(nil), t.sent...)
}
