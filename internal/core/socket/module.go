package socket

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
)

// Params 套接字管理器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 socket 的 Fx 模块
//
// 绑定由中继核心在启动时打开，这里只负责停止时统一关闭。
var Module = fx.Module("socket",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从参数创建 Manager
func NewFromParams(p Params) *Manager {
	return NewManager(ConfigFromUnified(p.UnifiedCfg))
}

func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return m.Close()
		},
	})
}
