package ssdprelay

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/access"
	"github.com/dep2p/go-ssdprelay/internal/core/dispatch"
	"github.com/dep2p/go-ssdprelay/internal/core/metrics"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/core/proxy"
	"github.com/dep2p/go-ssdprelay/internal/core/relay"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置与实例标记
//  2. socket → access / dispatch / proxy
//  3. observe ← metrics（Sink 经 observe_sinks 组汇入 Fanout）
//  4. relay（依赖以上全部，OnStart 时打开绑定）
func buildFxApp(o *options, cfg *config.Config, tag types.InstanceTag, r *Relay) *fx.App {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置注入
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Supply(tag),
	}
	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		socket.Module,   // 组播套接字
		access.Module,   // 访问控制
		dispatch.Module, // 路由规则
		proxy.Module,    // 代答
		observe.Module,  // 观测分发
		metrics.Module,  // Prometheus 指标
		relay.Module,    // 中继核心
	)

	// ════════════════════════════════════════════════════════════════════════
	// 3. 用户观测回调
	// ════════════════════════════════════════════════════════════════════════
	for _, fn := range o.handlers {
		sink := observe.SinkFunc(fn)
		modules = append(modules, fx.Provide(
			fx.Annotate(
				func() observe.Sink { return sink },
				fx.ResultTags(observe.SinkGroup),
			),
		))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户自定义选项与组件引用
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.fxOptions...)
	modules = append(modules, fx.Populate(&r.core, &r.sockets, &r.fanout))

	// ════════════════════════════════════════════════════════════════════════
	// 5. Fx 日志
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		if o.verboseFx {
			if l, err := zap.NewDevelopment(); err == nil {
				return &fxevent.ZapLogger{Logger: l}
			}
		}
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}))

	return fx.New(modules...)
}
