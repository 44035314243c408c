package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              哨兵错误
// ============================================================================

var (
	// ErrNoBindings 没有可用的接口绑定
	ErrNoBindings = errors.New("no usable interface bindings")

	// ErrBindingClosed 绑定已关闭
	ErrBindingClosed = errors.New("binding closed")

	// ErrDirectionDisabled 绑定未启用该方向
	ErrDirectionDisabled = errors.New("binding direction disabled")

	// ErrNoIPv4Address 接口没有 IPv4 地址
	ErrNoIPv4Address = errors.New("interface has no IPv4 address")
)

// ============================================================================
//                              ConfigError - 配置错误
// ============================================================================

// ConfigError 加载时发现的致命配置错误，进程拒绝启动
type ConfigError struct {
	// Field 出错的配置项路径，如 "rules[2].targets"
	Field string
	// Err 底层错误
	Err error
}

// NewConfigError 创建配置错误
func NewConfigError(field string, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError 检查错误链中是否包含 ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ============================================================================
//                              BindError - 绑定错误
// ============================================================================

// BindError 启动时打开套接字或加入组播组失败
//
// 对该绑定的对应方向是致命的；只有当某个必需方向没有任何成功的绑定时，
// 对进程才是致命的。
type BindError struct {
	// Interface 接口名
	Interface string
	// Direction 失败的方向
	Direction Direction
	// Err 底层系统错误
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s (%s): %v", e.Interface, e.Direction, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ============================================================================
//                              IOError - 运行期 I/O 错误
// ============================================================================

// IOError 运行期读写错误
//
// Fatal=false 表示瞬时错误（已在内部重试），Fatal=true 表示该绑定已降级。
type IOError struct {
	// Op 操作名（receive / send）
	Op string
	// Interface 接口名
	Interface string
	// Fatal 是否为致命错误
	Fatal bool
	// Err 底层错误
	Err error
}

func (e *IOError) Error() string {
	kind := "transient"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Interface, kind, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsFatalIO 检查错误是否为致命 I/O 错误
func IsFatalIO(err error) bool {
	var ioe *IOError
	return errors.As(err, &ioe) && ioe.Fatal
}
