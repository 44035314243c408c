package observe

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
)

// SinkGroup 观测 Sink 的 fx value group 名
const SinkGroup = `group:"observe_sinks"`

// Params Fanout 依赖参数
type Params struct {
	fx.In

	Sinks []Sink      `group:"observe_sinks"`
	Clock clock.Clock `optional:"true"`
}

// Module 是 observe 的 Fx 模块
//
// 提供日志 Sink 到 observe_sinks 组，并将组内所有 Sink
// 聚合为一个异步 Fanout 作为 Sink 输出。
var Module = fx.Module("observe",
	fx.Provide(
		fx.Annotate(
			func() Sink { return NewLogSink(nil) },
			fx.ResultTags(SinkGroup),
		),
		NewFromParams,
		func(f *Fanout) Sink { return f },
	),
	fx.Invoke(registerLifecycle),
)

// NewFromParams 从参数创建 Fanout
func NewFromParams(p Params) *Fanout {
	return NewFanout(DefaultBufferSize, p.Clock, p.Sinks...)
}

func registerLifecycle(lc fx.Lifecycle, f *Fanout) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			f.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			f.Stop()
			return nil
		},
	})
}
