// Package logger 提供 ssdp-relay 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别（支持 "relay" 覆盖 "relay.core" 这样的前缀）
//   - 环境变量配置（SSDPRELAY_LOG_LEVEL, SSDPRELAY_LOG_FORMAT）
//   - 运行时调整级别、切换输出
//
// 使用示例:
//
//	package relay
//
//	import "github.com/dep2p/go-ssdprelay/internal/util/logger"
//
//	var log = logger.Logger("relay.core")
//
//	func foo() {
//	    log.Info("转发报文", "iface", name, "targets", len(targets))
//	}
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler

	// globalOverride SetGlobalLevel 设置的级别，对之后创建的 Logger 同样生效
	globalOverride   *slog.Level
	globalOverrideMu sync.RWMutex
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回相同的实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	level := cfg.LevelForSubsystem(subsystem)
	globalOverrideMu.RLock()
	if globalOverride != nil {
		level = *globalOverride
	}
	globalOverrideMu.RUnlock()

	handler := newHandler(subsystem, level, cfg)
	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(handler))
	if !loaded {
		handlers.Store(subsystem, handler)
	}
	return actual.(*slog.Logger)
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// SetGlobalLevel 设置所有子系统的日志级别
//
// 命令行 --log-level 使用该函数；之后创建的 Logger 也使用该级别。
func SetGlobalLevel(level slog.Level) {
	globalOverrideMu.Lock()
	globalOverride = &level
	globalOverrideMu.Unlock()

	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).SetLevel(level)
		return true
	})
}

// SetLevelByName 按名称设置全局级别，未知名称返回错误
func SetLevelByName(name string) error {
	level, ok := ParseLevel(name)
	if !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	SetGlobalLevel(level)
	return nil
}

// Discard 返回一个丢弃所有日志的 Logger
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 也会写入新的目标。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}

// SetOutputFile 将日志追加写入文件，返回的 Closer 会恢复 stderr 并关闭文件
func SetOutputFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // 用户指定的日志路径
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	SetOutput(f)
	return closerFunc(func() error {
		SetOutput(os.Stderr)
		return f.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
