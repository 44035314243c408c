package config

import (
	"strings"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// LogConfig 日志配置
//
// 环境变量 SSDPRELAY_LOG_LEVEL 仍可按子系统细化级别。
type LogConfig struct {
	// Level 全局日志级别：debug | info | warn | error，为空时沿用环境变量
	Level string `json:"level,omitempty"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return types.NewConfigError("log.level", "unknown level %q", c.Level)
	}
}
