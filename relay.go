package ssdprelay

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/core/relay"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("ssdprelay")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 15 * time.Second

	// stopGrace 在排空超时之外额外留给关闭绑定的时间
	stopGrace = 5 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Relay
// ════════════════════════════════════════════════════════════════════════════

// Relay SSDP 组播中继
//
// 通过 New 创建，Start/Stop 控制生命周期；一个 Relay 只能启动一次。
type Relay struct {
	cfg *config.Config
	tag types.InstanceTag
	app *fx.App

	// 由 Fx 填充
	core    *relay.Core
	sockets *socket.Manager
	fanout  *observe.Fanout

	mu      sync.Mutex
	started bool
	closed  bool
	logFile io.Closer
}

// New 创建中继
//
// 配置不合法时返回 *types.ConfigError（可用 errors.As 判断）。
// 不打开任何套接字，绑定在 Start 时建立。
func New(opts ...Option) (*Relay, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg := o.toConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tag := types.NewInstanceTag()
	if cfg.InstanceTag != "" {
		parsed, err := types.ParseInstanceTag(cfg.InstanceTag)
		if err != nil {
			return nil, &types.ConfigError{Field: "instance_tag", Err: err}
		}
		tag = parsed
	}

	if cfg.Log.Level != "" {
		if err := logger.SetLevelByName(cfg.Log.Level); err != nil {
			return nil, &types.ConfigError{Field: "log.level", Err: err}
		}
	}

	r := &Relay{cfg: cfg, tag: tag}
	r.app = buildFxApp(o, cfg, tag, r)
	if err := r.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return r, nil
}

// Start 打开所有绑定并启动读循环
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRelayClosed
	}
	if r.started {
		return ErrAlreadyStarted
	}

	if r.cfg.Log.File != "" {
		closer, err := logger.SetOutputFile(r.cfg.Log.File)
		if err != nil {
			return err
		}
		r.logFile = closer
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := r.app.Start(startCtx); err != nil {
		log.Error("中继启动失败", "err", err)
		r.closeLogFile()
		return err
	}
	r.started = true

	log.Info("SSDP 中继已启动",
		"version", Version,
		"tag", r.tag.ShortString(),
		"port", r.cfg.Port,
		"interfaces", len(r.cfg.Interfaces),
		"rules", len(r.cfg.Rules))
	return nil
}

// Stop 停止中继并释放所有绑定
//
// 重复调用返回 nil。
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrNotStarted
	}
	if r.closed {
		return nil
	}
	r.closed = true

	stopCtx, cancel := context.WithTimeout(ctx, r.cfg.Relay.DrainTimeout.Std()+stopGrace)
	defer cancel()

	err := r.app.Stop(stopCtx)
	log.Info("SSDP 中继已停止")
	return multierr.Append(err, r.closeLogFile())
}

// Run 启动中继并运行直到 ctx 取消
func (r *Relay) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return r.Stop(context.Background())
}

// Tag 返回本实例标记
func (r *Relay) Tag() types.InstanceTag {
	return r.tag
}

// Config 返回生效的配置
func (r *Relay) Config() *config.Config {
	return r.cfg
}

func (r *Relay) closeLogFile() error {
	if r.logFile == nil {
		return nil
	}
	err := r.logFile.Close()
	r.logFile = nil
	return err
}
