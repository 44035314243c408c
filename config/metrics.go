package config

import (
	"net"
	"strings"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enabled 是否收集指标
	Enabled bool `json:"enabled"`

	// Listen HTTP 监听地址，如 ":9190"，为空时不启动 HTTP 端点
	Listen string `json:"listen,omitempty"`

	// Path 指标路径
	Path string `json:"path"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: true,
		Path:    "/metrics",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return types.NewConfigError("metrics.listen", "invalid listen address %q", c.Listen)
		}
	}
	if !strings.HasPrefix(c.Path, "/") {
		return types.NewConfigError("metrics.path", "must start with /")
	}
	return nil
}
