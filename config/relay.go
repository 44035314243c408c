package config

import (
	"time"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// RelayConfig 中继核心配置
type RelayConfig struct {
	// HopLimit 接收报文的初始跳数上限
	HopLimit int `json:"hop_limit"`

	// UseIPTTL 对已被其它实例中继过的报文，使用 IP 头中的 TTL 作为跳数（取与 HopLimit 的较小值）
	//
	// 客户端报文总是从 HopLimit 开始。关闭时每个接收报文的跳数固定为 HopLimit，
	// 此时环路只靠实例标记截断。
	UseIPTTL bool `json:"use_ip_ttl"`

	// ReadBufferSize 单个数据报读缓冲大小
	ReadBufferSize int `json:"read_buffer_size"`

	// SendRetries 瞬时发送错误的重试次数
	SendRetries int `json:"send_retries"`

	// RetryBackoff 重试间隔
	RetryBackoff Duration `json:"retry_backoff"`

	// DrainTimeout 关闭时等待进行中动作完成的最长时间
	DrainTimeout Duration `json:"drain_timeout"`

	// ReplyWindow 转发或拨测后等待单播响应并回送给请求方的时长，0 表示不回送
	ReplyWindow Duration `json:"reply_window"`

	// PendingSize 等待响应的请求方记录上限
	PendingSize int `json:"pending_size"`
}

// DefaultRelayConfig 返回默认中继核心配置
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		HopLimit:       types.DefaultTTL,
		UseIPTTL:       true,
		ReadBufferSize: 2048,
		SendRetries:    3,
		RetryBackoff:   Duration(5 * time.Millisecond),
		DrainTimeout:   Duration(5 * time.Second),
		ReplyWindow:    Duration(10 * time.Second),
		PendingSize:    256,
	}
}

// Validate 验证中继核心配置
func (c RelayConfig) Validate() error {
	if c.HopLimit <= 0 || c.HopLimit > 255 {
		return types.NewConfigError("relay.hop_limit", "must be in 1..255, got %d", c.HopLimit)
	}
	if c.ReadBufferSize < 512 || c.ReadBufferSize > 65535 {
		return types.NewConfigError("relay.read_buffer_size", "must be in 512..65535, got %d", c.ReadBufferSize)
	}
	if c.SendRetries < 0 {
		return types.NewConfigError("relay.send_retries", "must not be negative")
	}
	if c.PendingSize < 0 {
		return types.NewConfigError("relay.pending_size", "must not be negative")
	}
	if c.RetryBackoff < 0 || c.DrainTimeout < 0 || c.ReplyWindow < 0 {
		return types.NewConfigError("relay", "durations must not be negative")
	}
	return nil
}
