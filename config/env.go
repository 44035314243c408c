package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// ============================================================================
//                              环境变量（供 CLI 使用）
// ============================================================================

// 环境变量前缀和名称常量
const (
	// EnvPrefix 环境变量前缀
	EnvPrefix = "SSDPRELAY_"

	// EnvPort 监听端口
	EnvPort = "PORT"

	// EnvInterfaces 接口列表（逗号分隔，name[:rx|tx|rxtx]）
	EnvInterfaces = "INTERFACES"

	// EnvBlockSelf 丢弃本实例报文
	EnvBlockSelf = "BLOCK_SELF"

	// EnvAllowCIDRs 允许的 CIDR（逗号分隔）
	EnvAllowCIDRs = "ALLOW_CIDRS"

	// EnvBlockCIDRs 阻止的 CIDR（逗号分隔）
	EnvBlockCIDRs = "BLOCK_CIDRS"

	// EnvDSCP DSCP 标记
	EnvDSCP = "DSCP"

	// EnvInstanceTag 固定实例标记
	EnvInstanceTag = "INSTANCE_TAG"

	// EnvMetricsListen 指标监听地址
	EnvMetricsListen = "METRICS_LISTEN"

	// EnvLogFile 日志文件路径
	EnvLogFile = "LOG_FILE"
)

// ApplyEnv 用环境变量覆盖配置
//
// getenv 通常为 os.Getenv，测试中可替换。无法解析的值返回 ConfigError，
// 不会被静默忽略。
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	get := func(name string) string {
		return strings.TrimSpace(getenv(EnvPrefix + name))
	}

	// SSDPRELAY_PORT
	if v := get(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return types.NewConfigError(EnvPrefix+EnvPort, "invalid port %q", v)
		}
		cfg.Port = port
	}

	// SSDPRELAY_INTERFACES
	if v := get(EnvInterfaces); v != "" {
		ifaces := make([]InterfaceConfig, 0)
		for _, spec := range splitAndTrim(v, ",") {
			ic, err := ParseInterfaceSpec(spec)
			if err != nil {
				return &types.ConfigError{Field: EnvPrefix + EnvInterfaces, Err: err}
			}
			ifaces = append(ifaces, ic)
		}
		cfg.Interfaces = ifaces
	}

	// SSDPRELAY_BLOCK_SELF
	if v := get(EnvBlockSelf); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return types.NewConfigError(EnvPrefix+EnvBlockSelf, "invalid bool %q", v)
		}
		cfg.Access.BlockSelf = b
	}

	// SSDPRELAY_ALLOW_CIDRS / SSDPRELAY_BLOCK_CIDRS
	if v := get(EnvAllowCIDRs); v != "" {
		cfg.Access.AllowCIDRs = splitAndTrim(v, ",")
	}
	if v := get(EnvBlockCIDRs); v != "" {
		cfg.Access.BlockCIDRs = splitAndTrim(v, ",")
	}

	// SSDPRELAY_DSCP
	if v := get(EnvDSCP); v != "" {
		d, err := ParseDSCP(v)
		if err != nil {
			return &types.ConfigError{Field: EnvPrefix + EnvDSCP, Err: err}
		}
		cfg.DSCP = d
	}

	if v := get(EnvInstanceTag); v != "" {
		cfg.InstanceTag = v
	}
	if v := get(EnvMetricsListen); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := get(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
	return nil
}

// splitAndTrim 分割并去除空白，丢弃空项
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvName 返回带前缀的环境变量名
func EnvName(name string) string {
	return fmt.Sprintf("%s%s", EnvPrefix, name)
}
