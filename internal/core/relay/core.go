package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-ssdprelay/internal/core/access"
	"github.com/dep2p/go-ssdprelay/internal/core/dispatch"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("relay")

// Responder proxy 动作的响应构造器
//
// *proxy.Responder 实现该接口。
type Responder interface {
	// Observe 记录经过的 NOTIFY 报文
	Observe(env types.Envelope) bool

	// Respond 为 M-SEARCH 构造响应报文
	Respond(env types.Envelope) ([][]byte, error)
}

// Deps 中继核心的协作者
type Deps struct {
	Tag        types.InstanceTag
	Filter     *access.Filter
	Dispatcher *dispatch.Dispatcher
	Responder  Responder
	Transport  Transport
	Sink       observe.Sink
}

// ============================================================================
//                              Core - 中继核心
// ============================================================================

// Core 中继核心
type Core struct {
	cfg Config
	tag types.InstanceTag

	// filter 在 Start 时补入本机发送地址，之后只读
	filter     *access.Filter
	dispatcher *dispatch.Dispatcher
	responder  Responder
	transport  Transport
	sink       observe.Sink

	limiter *rate.Limiter
	dedupe  *expirable.LRU[string, struct{}]
	pending *expirable.LRU[string, requester]

	mu        sync.RWMutex
	endpoints []Endpoint
	byName    map[string]Endpoint

	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
	stopped atomic.Bool

	received atomic.Uint64
	replies  atomic.Uint64
	outcomes map[types.Outcome]*atomic.Uint64
}

// New 创建中继核心
func New(cfg Config, d Deps) (*Core, error) {
	if d.Filter == nil || d.Dispatcher == nil || d.Transport == nil {
		return nil, errors.New("relay: filter, dispatcher and transport are required")
	}
	cfg.normalize()

	sink := d.Sink
	if sink == nil {
		sink = observe.Nop
	}

	limit := rate.Inf
	if cfg.DialRate > 0 {
		limit = rate.Limit(cfg.DialRate)
	}

	c := &Core{
		cfg:        cfg,
		tag:        d.Tag,
		filter:     d.Filter,
		dispatcher: d.Dispatcher,
		responder:  d.Responder,
		transport:  d.Transport,
		sink:       sink,
		limiter:    rate.NewLimiter(limit, cfg.DialBurst),
		byName:     make(map[string]Endpoint),
		done:       make(chan struct{}),
		outcomes:   make(map[types.Outcome]*atomic.Uint64),
	}
	if cfg.DedupeWindow > 0 {
		c.dedupe = expirable.NewLRU[string, struct{}](cfg.DedupeSize, nil, cfg.DedupeWindow)
	}
	if cfg.ReplyWindow > 0 {
		c.pending = expirable.NewLRU[string, requester](cfg.PendingSize, nil, cfg.ReplyWindow)
	}
	for _, o := range types.AllOutcomes() {
		c.outcomes[o] = new(atomic.Uint64)
	}
	return c, nil
}

// Start 打开所有绑定，为每个接收绑定启动读循环，为每个发送绑定启动回复读循环
//
// ctx 只约束打开绑定；读循环的生命周期由 Stop 控制。
func (c *Core) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	eps, err := c.transport.Open(ctx)
	if err != nil {
		c.started.Store(false)
		return err
	}

	c.mu.Lock()
	c.endpoints = eps
	for _, ep := range eps {
		c.byName[ep.Name()] = ep
	}
	c.filter = c.filter.WithSelfAddrs(c.transport.LocalAddrs())
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	var g errgroup.Group
	loops := 0
	for _, ep := range eps {
		ep := ep
		if ep.CanReceive() {
			loops++
			g.Go(func() error {
				c.loop(runCtx, ep)
				return nil
			})
		}
		if ep.CanTransmit() {
			loops++
			g.Go(func() error {
				c.replyLoop(runCtx, ep)
				return nil
			})
		}
	}
	go func() {
		_ = g.Wait()
		close(c.done)
	}()

	log.Info("中继已启动",
		"tag", c.tag.ShortString(),
		"bindings", len(eps),
		"loops", loops,
		"rules", len(c.dispatcher.Rules()))
	return nil
}

// Stop 停止读循环，等待进行中的动作完成，关闭所有绑定
//
// 等待受 ctx 与 DrainTimeout 约束，超时后仍会关闭绑定。
func (c *Core) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return ErrNotStarted
	}
	if !c.stopped.CompareAndSwap(false, true) {
		return nil
	}

	log.Info("正在停止中继")
	c.cancel()

	drain, cancel := context.WithTimeout(ctx, c.cfg.DrainTimeout)
	defer cancel()

	var errs error
	select {
	case <-c.done:
	case <-drain.Done():
		log.Warn("等待读循环退出超时", "timeout", c.cfg.DrainTimeout)
		errs = multierr.Append(errs, drain.Err())
	}

	if err := c.transport.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}

	log.Info("中继已停止", "received", c.received.Load())
	return errs
}

// Run 启动并运行直到 ctx 取消，然后优雅停止
func (c *Core) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), c.cfg.DrainTimeout+time.Second)
	defer cancel()
	return c.Stop(stopCtx)
}

// Done 在所有读循环退出后关闭
func (c *Core) Done() <-chan struct{} {
	return c.done
}

// Tag 返回本实例标记
func (c *Core) Tag() types.InstanceTag {
	return c.tag
}

// loop 单个接收绑定的读循环
func (c *Core) loop(ctx context.Context, ep Endpoint) {
	log.Debug("读循环启动", "iface", ep.Name())
	defer log.Debug("读循环退出", "iface", ep.Name())

	for {
		env, err := c.transport.Receive(ctx, ep)
		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, types.ErrBindingClosed):
				return
			case types.IsFatalIO(err):
				ep.MarkDegraded()
				log.Error("接口绑定降级，读循环退出", "iface", ep.Name(), "err", err)
				return
			default:
				log.Debug("读取失败", "iface", ep.Name(), "err", err)
				continue
			}
		}
		c.received.Add(1)
		c.handle(ctx, env)
	}
}

// replyLoop 单个发送绑定的回复读循环
//
// 致命错误只结束回复读取，不影响该绑定的接收与发送。
func (c *Core) replyLoop(ctx context.Context, ep Endpoint) {
	for {
		env, err := c.transport.ReceiveReply(ctx, ep)
		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, types.ErrBindingClosed), errors.Is(err, types.ErrDirectionDisabled):
				return
			case types.IsFatalIO(err):
				log.Warn("回复读循环退出", "iface", ep.Name(), "err", err)
				return
			default:
				log.Debug("读取回复失败", "iface", ep.Name(), "err", err)
				continue
			}
		}
		c.replies.Add(1)
		c.handleReply(ctx, env)
	}
}

// endpoint 按名字查找绑定
func (c *Core) endpoint(name string) (Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ep, ok := c.byName[name]
	return ep, ok
}

// firstTransmitter 返回第一个可发送的绑定
func (c *Core) firstTransmitter() (Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ep := range c.endpoints {
		if ep.CanTransmit() {
			return ep, true
		}
	}
	return nil, false
}

func (c *Core) accessFilter() *access.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}
