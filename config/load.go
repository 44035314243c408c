package config

import (
	"fmt"
	"os"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// LoadFile 从 JSON 文件加载配置
//
// 文件中未出现的字段保留默认值。返回的配置尚未 Validate，
// 调用方通常还要叠加环境变量与命令行。
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, &types.ConfigError{Field: "file", Err: fmt.Errorf("read %s: %w", path, err)}
	}
	return FromJSON(data)
}

// Load 按 文件 -> 环境变量 的顺序构建配置并验证
//
// path 为空时从默认配置开始。
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := NewConfig()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if getenv != nil {
		if err := ApplyEnv(cfg, getenv); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
