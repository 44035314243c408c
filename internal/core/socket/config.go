package socket

import (
	"net/netip"
	"time"

	"github.com/dep2p/go-ssdprelay/config"
)

// Config 套接字管理器配置
type Config struct {
	// ReadBufferSize 单个数据报读缓冲大小
	ReadBufferSize int

	// SendRetries 瞬时发送错误的重试次数
	SendRetries int

	// RetryBackoff 发送重试间隔，也是接收重试的起始退避
	RetryBackoff time.Duration

	// MaxBackoff 接收重试的最大退避
	MaxBackoff time.Duration

	// PollInterval 读超时，用于及时响应 ctx 取消
	PollInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ReadBufferSize: 2048,
		SendRetries:    3,
		RetryBackoff:   5 * time.Millisecond,
		MaxBackoff:     time.Second,
		PollInterval:   500 * time.Millisecond,
	}
}

// ConfigFromUnified 从统一配置创建套接字管理器配置
func ConfigFromUnified(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	out.ReadBufferSize = cfg.Relay.ReadBufferSize
	out.SendRetries = cfg.Relay.SendRetries
	if d := cfg.Relay.RetryBackoff.Std(); d > 0 {
		out.RetryBackoff = d
	}
	return out
}

// BindingConfig 单个接口绑定的打开参数
type BindingConfig struct {
	// Name 接口名
	Name string

	// Receive 是否打开接收套接字
	Receive bool

	// Transmit 是否打开发送套接字
	Transmit bool

	// Groups 接收套接字加入的组播组，为空时不加入任何组（仅单播）
	Groups []netip.Addr

	// Port 接收端口，0 表示由系统分配
	Port int

	// ListenAddr 接收套接字绑定地址，无效时为 0.0.0.0
	ListenAddr netip.Addr

	// DSCP 发送报文的 DSCP 标记
	DSCP config.DSCP
}

// BindingConfigs 从统一配置展开每个接口的绑定参数
func BindingConfigs(cfg *config.Config) []BindingConfig {
	out := make([]BindingConfig, 0, len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		out = append(out, BindingConfig{
			Name:       ic.Name,
			Receive:    ic.Receive,
			Transmit:   ic.Transmit,
			Groups:     ic.GroupAddrs(),
			Port:       cfg.Port,
			ListenAddr: cfg.ListenAddr(),
			DSCP:       cfg.DSCP,
		})
	}
	return out
}
