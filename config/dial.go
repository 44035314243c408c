package config

import (
	"time"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// DialConfig dial 动作配置
//
// dial 发起即忘：不等待响应，不重试；速率与去重用于抑制放大。
type DialConfig struct {
	// TTL 新请求的跳数
	TTL int `json:"ttl"`

	// MX 新请求的 MX（秒），原请求未携带时使用
	MX int `json:"mx"`

	// ST 原请求未携带 ST 时使用的搜索目标
	ST string `json:"st"`

	// Rate 每秒允许发起的拨测数（令牌桶速率）
	Rate float64 `json:"rate"`

	// Burst 令牌桶容量
	Burst int `json:"burst"`

	// DedupeWindow 相同 (ST, 目标) 的去重窗口，0 表示不去重
	DedupeWindow Duration `json:"dedupe_window"`

	// DedupeSize 去重缓存容量
	DedupeSize int `json:"dedupe_size"`
}

// DefaultDialConfig 返回默认 dial 配置
func DefaultDialConfig() DialConfig {
	return DialConfig{
		TTL:          types.DefaultTTL,
		MX:           2,
		ST:           "ssdp:all",
		Rate:         10,
		Burst:        20,
		DedupeWindow: Duration(time.Second),
		DedupeSize:   1024,
	}
}

// Validate 验证 dial 配置
func (c DialConfig) Validate() error {
	if c.TTL <= 0 || c.TTL > 255 {
		return types.NewConfigError("dial.ttl", "must be in 1..255, got %d", c.TTL)
	}
	if c.MX < 1 || c.MX > 5 {
		return types.NewConfigError("dial.mx", "must be in 1..5, got %d", c.MX)
	}
	if c.ST == "" {
		return types.NewConfigError("dial.st", "must not be empty")
	}
	if c.Rate <= 0 || c.Burst <= 0 {
		return types.NewConfigError("dial.rate", "rate and burst must be positive")
	}
	if c.DedupeWindow < 0 {
		return types.NewConfigError("dial.dedupe_window", "must not be negative")
	}
	if c.DedupeWindow > 0 && c.DedupeSize <= 0 {
		return types.NewConfigError("dial.dedupe_size", "must be positive when dedupe is enabled")
	}
	return nil
}
