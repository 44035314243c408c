package access

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Params access 依赖参数
type Params struct {
	fx.In

	Config *config.Config
	Tag    types.InstanceTag
}

// Module 是 access 的 Fx 模块
//
// 提供的 Filter 尚不包含本地发送地址，由 relay 在绑定完成后调用 WithSelfAddrs。
var Module = fx.Module("access",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建过滤器
func NewFromParams(p Params) (*Filter, error) {
	return Compile(p.Config.Access, p.Tag)
}
