package relay

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/access"
	"github.com/dep2p/go-ssdprelay/internal/core/dispatch"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/core/proxy"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Params 中继核心依赖参数
type Params struct {
	fx.In

	Config     *config.Config
	Tag        types.InstanceTag
	Filter     *access.Filter
	Dispatcher *dispatch.Dispatcher
	Responder  *proxy.Responder `optional:"true"`
	Sockets    *socket.Manager
	Sink       observe.Sink `optional:"true"`

	// Transport 非 nil 时替代基于 Sockets 的默认传输
	Transport Transport `optional:"true"`
}

// Module 是 relay 的 Fx 模块
var Module = fx.Module("relay",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从参数创建中继核心
func NewFromParams(p Params) (*Core, error) {
	d := Deps{
		Tag:        p.Tag,
		Filter:     p.Filter,
		Dispatcher: p.Dispatcher,
		Transport:  p.Transport,
		Sink:       p.Sink,
	}
	if d.Transport == nil {
		d.Transport = NewSocketTransport(p.Sockets, socket.BindingConfigs(p.Config))
	}
	if p.Responder != nil {
		d.Responder = p.Responder
	}
	return New(ConfigFromUnified(p.Config), d)
}

func registerLifecycle(lc fx.Lifecycle, c *Core) {
	lc.Append(fx.Hook{
		OnStart: c.Start,
		OnStop: func(ctx context.Context) error {
			return c.Stop(ctx)
		},
	})
}
