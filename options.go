package ssdprelay

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// Event 单个中继决定的观测事件
type Event = observe.Event

// options 内部选项结构
type options struct {
	// 基础配置，为空时使用 config.NewConfig()
	config *config.Config

	// 覆盖项
	instanceTag string
	port        int
	logLevel    string

	// 额外的观测回调
	handlers []func(Event)

	clock clock.Clock

	// 输出 Fx 内部事件
	verboseFx bool

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{}
}

// toConfig 合成最终配置，不修改调用方传入的配置
func (o *options) toConfig() *config.Config {
	cfg := config.NewConfig()
	if o.config != nil {
		c := *o.config
		cfg = &c
	}
	if o.instanceTag != "" {
		cfg.InstanceTag = o.instanceTag
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置
//
// 之后的 WithPort / WithInstanceTag 等选项仍会覆盖对应字段。
//
//	cfg, _ := config.Load("relay.json", os.Getenv)
//	ssdprelay.New(ssdprelay.WithConfig(cfg))
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("配置不能为空")
		}
		o.config = cfg
		return nil
	}
}

// WithPort 设置监听端口
func WithPort(port int) Option {
	return func(o *options) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("无效的端口号: %d", port)
		}
		o.port = port
		return nil
	}
}

// WithInstanceTag 固定实例标记
//
// 同一网络中的多个中继必须使用不同的标记；不设置时每次启动随机生成。
func WithInstanceTag(tag string) Option {
	return func(o *options) error {
		if _, err := types.ParseInstanceTag(tag); err != nil {
			return fmt.Errorf("无效的实例标记 %q: %w", tag, err)
		}
		o.instanceTag = tag
		return nil
	}
}

// WithLogLevel 设置全局日志级别
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.logLevel = level
		return nil
	}
}

// ============================================================================
//                              观测与扩展
// ============================================================================

// WithEventHandler 注册观测回调
//
// 回调在观测分发协程中调用，不得阻塞；分发队列满时事件会被丢弃。
func WithEventHandler(fn func(Event)) Option {
	return func(o *options) error {
		if fn == nil {
			return fmt.Errorf("观测回调不能为空")
		}
		o.handlers = append(o.handlers, fn)
		return nil
	}
}

// WithClock 替换时钟（测试用）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithVerboseFx 输出 Fx 依赖注入过程
func WithVerboseFx(enable bool) Option {
	return func(o *options) error {
		o.verboseFx = enable
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
