package dispatch

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
)

// Module 是 dispatch 的 Fx 模块
var Module = fx.Module("dispatch",
	fx.Provide(func(cfg *config.Config) (*Dispatcher, error) {
		return Compile(cfg.Rules)
	}),
)
