package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool

	// Listen HTTP 监听地址，为空时不启动服务
	Listen string

	// Path 指标路径
	Path string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Path:    "/metrics",
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled: cfg.Metrics.Enabled,
		Listen:  cfg.Metrics.Listen,
		Path:    cfg.Metrics.Path,
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config  `optional:"true"`
	Sockets    *socket.Manager `optional:"true"`
}

// Result Metrics 输出
type Result struct {
	fx.Out

	Collector *Collector
	Sink      observe.Sink `group:"observe_sinks"`
	Server    *Server
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从参数创建 Collector 与 Server
//
// 未启用时 Collector、Sink 与 Server 均为 nil；
// 未配置监听地址时 Server 为 nil。
func NewFromParams(p Params) Result {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		return Result{Sink: observe.Nop}
	}

	var source BindingSource
	if p.Sockets != nil {
		source = p.Sockets
	}
	c := NewCollector(source)

	res := Result{Collector: c, Sink: c}
	if cfg.Listen != "" {
		res.Server = NewServer(cfg.Listen, cfg.Path, c.Registry())
	}
	return res
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	if s == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}
