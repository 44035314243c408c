package proxy

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Params proxy 依赖参数
type Params struct {
	fx.In

	Config *config.Config
	Tag    types.InstanceTag
	Clock  clock.Clock `optional:"true"`
}

// Module 是 proxy 的 Fx 模块
var Module = fx.Module("proxy",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建响应构造器
func NewFromParams(p Params) *Responder {
	return New(p.Config.Proxy, p.Tag, p.Clock)
}
