package config

import (
	"net/url"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// ProxyConfig proxy 动作的代答配置
//
// 代答优先使用从 NOTIFY 观察到的真实设备通告（注册表），
// 没有匹配的通告且配置了 Location 时回退到自身身份响应。
type ProxyConfig struct {
	// UseRegistry 是否记录观察到的 NOTIFY 并用于代答
	UseRegistry bool `json:"use_registry"`

	// MaxResponses 单次请求最多回复的条目数
	MaxResponses int `json:"max_responses"`

	// Server SERVER 头
	Server string `json:"server"`

	// Location 回退响应的 LOCATION 头，为空时不发送回退响应
	Location string `json:"location,omitempty"`

	// USN 回退响应的 USN，为空时由实例标记派生
	USN string `json:"usn,omitempty"`

	// MaxAge CACHE-CONTROL max-age（秒）
	MaxAge int `json:"max_age"`
}

// DefaultProxyConfig 返回默认代答配置
func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		UseRegistry:  true,
		MaxResponses: 16,
		Server:       "Linux/1.0 UPnP/1.1 ssdp-relay/1.0",
		MaxAge:       1800,
	}
}

// Validate 验证代答配置
func (c ProxyConfig) Validate() error {
	if c.MaxResponses <= 0 {
		return types.NewConfigError("proxy.max_responses", "must be positive")
	}
	if c.MaxAge <= 0 {
		return types.NewConfigError("proxy.max_age", "must be positive")
	}
	if c.Location != "" {
		u, err := url.Parse(c.Location)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return types.NewConfigError("proxy.location", "invalid URL %q", c.Location)
		}
	}
	return nil
}
