package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/net/ipv4"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("socket")

// ============================================================================
//                              Manager - 套接字管理器
// ============================================================================

// Manager 打开、持有并关闭接口绑定
type Manager struct {
	cfg     Config
	resolve resolver

	mu       sync.RWMutex
	bindings []*Binding
	byName   map[string]*Binding
}

// NewManager 创建套接字管理器
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = def.ReadBufferSize
	}
	if cfg.SendRetries < 0 {
		cfg.SendRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &Manager{
		cfg:     cfg,
		resolve: ResolveInterface,
		byName:  make(map[string]*Binding),
	}
}

// Open 打开所有绑定
//
// 单个绑定失败不会中止其余绑定；仅当某个配置中需要的方向
// 没有任何成功的绑定时返回错误（包含 ErrNoBindings 与各绑定错误），
// 此时已打开的绑定全部关闭。接口名无法解析直接返回 ConfigError。
func (m *Manager) Open(ctx context.Context, cfgs []BindingConfig) ([]*Binding, error) {
	var (
		opened         []*Binding
		errs           error
		needRx, needTx bool
		haveRx, haveTx bool
	)

	for _, c := range cfgs {
		needRx = needRx || c.Receive
		needTx = needTx || c.Transmit

		b, err := m.OpenBinding(ctx, c)
		if err != nil {
			if types.IsConfigError(err) {
				m.closeAll(opened)
				return nil, err
			}
			log.Warn("打开接口绑定失败", "iface", c.Name, "err", err)
			errs = multierr.Append(errs, err)
			continue
		}
		opened = append(opened, b)
		haveRx = haveRx || b.receive
		haveTx = haveTx || b.transmit
	}

	if (needRx && !haveRx) || (needTx && !haveTx) || len(opened) == 0 {
		m.closeAll(opened)
		return nil, multierr.Append(types.ErrNoBindings, errs)
	}
	return opened, nil
}

// OpenBinding 打开单个接口绑定
//
// 任一已启用方向失败时关闭已打开的套接字并返回 *types.BindError。
func (m *Manager) OpenBinding(ctx context.Context, c BindingConfig) (*Binding, error) {
	if !c.Receive && !c.Transmit {
		return nil, types.NewConfigError("interfaces", "interface %q has both directions disabled", c.Name)
	}

	m.mu.RLock()
	_, dup := m.byName[c.Name]
	m.mu.RUnlock()
	if dup {
		return nil, types.NewConfigError("interfaces", "interface %q already bound", c.Name)
	}

	ifi, ifaceAddr, err := m.resolve(c.Name)
	if err != nil {
		if types.IsConfigError(err) {
			return nil, err
		}
		dir := types.DirReceive
		if !c.Receive {
			dir = types.DirTransmit
		}
		return nil, &types.BindError{Interface: c.Name, Direction: dir, Err: err}
	}

	b := &Binding{
		name:      c.Name,
		group:     netip.MustParseAddr(config.DefaultGroup),
		ifi:       ifi,
		ifaceAddr: ifaceAddr,
	}
	if len(c.Groups) > 0 {
		b.group = c.Groups[0]
	}

	if c.Receive {
		if err := m.openReceive(ctx, b, c); err != nil {
			_ = b.close()
			return nil, &types.BindError{Interface: c.Name, Direction: types.DirReceive, Err: err}
		}
		b.receive = true
		b.readBuf = make([]byte, m.cfg.ReadBufferSize)
	}
	if c.Transmit {
		if err := m.openTransmit(ctx, b, c); err != nil {
			_ = b.close()
			return nil, &types.BindError{Interface: c.Name, Direction: types.DirTransmit, Err: err}
		}
		b.transmit = true
		b.replyBuf = make([]byte, m.cfg.ReadBufferSize)
	}

	m.mu.Lock()
	m.bindings = append(m.bindings, b)
	m.byName[b.name] = b
	m.mu.Unlock()

	log.Info("接口绑定已打开",
		"iface", b.name,
		"addr", b.ifaceAddr,
		"rx", b.rxAddr,
		"tx", b.txAddr,
		"groups", len(b.groups),
		"dscp", c.DSCP)
	return b, nil
}

func (m *Manager) openReceive(ctx context.Context, b *Binding, c BindingConfig) error {
	listen := c.ListenAddr
	if !listen.IsValid() {
		listen = netip.IPv4Unspecified()
	}
	lc := net.ListenConfig{Control: listenControl(b.device(), true)}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(listen.String(), strconv.Itoa(c.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	b.rx = ipv4.NewPacketConn(pc)
	b.rxAddr = udpAddrPort(pc.LocalAddr())

	for _, g := range c.Groups {
		if err := b.rx.JoinGroup(b.ifi, &net.UDPAddr{IP: g.AsSlice()}); err != nil {
			return fmt.Errorf("join group %s: %w", g, err)
		}
		b.groups = append(b.groups, g)
	}

	if err := b.rx.SetControlMessage(ipv4.FlagTTL|ipv4.FlagSrc|ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		// 无控制消息时 TTL 与接口过滤不可用，仍可工作
		log.Warn("开启控制消息失败", "iface", b.name, "err", err)
	}
	return nil
}

func (m *Manager) openTransmit(ctx context.Context, b *Binding, c BindingConfig) error {
	lc := net.ListenConfig{Control: listenControl(b.device(), false)}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(b.ifaceAddr.String(), "0"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	b.tx = ipv4.NewPacketConn(pc)
	b.txAddr = udpAddrPort(pc.LocalAddr())

	if b.ifi != nil && b.ifi.Flags&net.FlagMulticast != 0 {
		if err := b.tx.SetMulticastInterface(b.ifi); err != nil {
			return fmt.Errorf("set multicast interface: %w", err)
		}
	}
	if err := b.tx.SetMulticastLoopback(false); err != nil {
		log.Debug("关闭组播回环失败", "iface", b.name, "err", err)
	}
	if c.DSCP.IsSet() {
		if err := b.tx.SetTOS(c.DSCP.TOS()); err != nil {
			return fmt.Errorf("set tos %s: %w", c.DSCP, err)
		}
	}
	return nil
}

// CloseBinding 关闭绑定，幂等
func (m *Manager) CloseBinding(b *Binding) error {
	if b == nil {
		return nil
	}
	m.mu.Lock()
	if cur, ok := m.byName[b.name]; ok && cur == b {
		delete(m.byName, b.name)
		for i, x := range m.bindings {
			if x == b {
				m.bindings = append(m.bindings[:i], m.bindings[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	err := b.close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Close 关闭所有绑定
func (m *Manager) Close() error {
	m.mu.Lock()
	bindings := m.bindings
	m.bindings = nil
	m.byName = make(map[string]*Binding)
	m.mu.Unlock()

	var errs error
	for _, b := range bindings {
		if err := b.close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (m *Manager) closeAll(bs []*Binding) {
	for _, b := range bs {
		_ = m.CloseBinding(b)
	}
}

// Bindings 返回当前打开的绑定
func (m *Manager) Bindings() []*Binding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Binding(nil), m.bindings...)
}

// Binding 按接口名查找绑定
func (m *Manager) Binding(name string) (*Binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byName[name]
	return b, ok
}

// LocalAddrs 返回所有发送套接字的本地地址（用于自环识别）
func (m *Manager) LocalAddrs() []netip.AddrPort {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]netip.AddrPort, 0, len(m.bindings))
	for _, b := range m.bindings {
		if b.transmit && b.txAddr.IsValid() {
			out = append(out, b.txAddr)
		}
	}
	return out
}

func udpAddrPort(a net.Addr) netip.AddrPort {
	if ua, ok := a.(*net.UDPAddr); ok {
		ap := ua.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return netip.AddrPort{}
}

// BindingStats 返回所有打开绑定的计数快照
func (m *Manager) BindingStats() []BindingStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BindingStats, 0, len(m.bindings))
	for _, b := range m.bindings {
		out = append(out, b.Stats())
	}
	return out
}
