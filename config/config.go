// Package config 提供 ssdp-relay 的统一配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体组合所有子配置
//   - 每个子配置在独立文件中定义，带有 Default*Config 和 Validate
//   - 支持从 JSON 文件加载，环境变量覆盖（SSDPRELAY_ 前缀）
//
// 优先级：命令行 > 环境变量 > 配置文件 > 默认值。
// 命令行层由 cmd/ssdp-relay 负责。
//
// 使用示例：
//
//	cfg, err := config.LoadFile("relay.json")
//	if err != nil {
//	    return err
//	}
//	config.ApplyEnv(cfg, os.Getenv)
//	if err := cfg.Validate(); err != nil {
//	    return err // *types.ConfigError
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// DefaultPort SSDP 默认端口
const DefaultPort = 1900

// DefaultGroup SSDP IPv4 组播组
const DefaultGroup = "239.255.255.250"

// Config 是 ssdp-relay 的完整配置结构
//
// 配置按照功能模块组织：
//   - Interfaces: 接口绑定（接收/发送开关、组播组）
//   - Access: 源地址访问控制（blockid/blockcidr/allowcidr）
//   - DSCP: 发送报文的流量类别标记
//   - Rules: M-SEARCH 路由规则（first-match-wins）
//   - Proxy / Dial: 对应动作的参数
//   - Relay: 跳数与收发参数
//   - Metrics: Prometheus 指标端点
type Config struct {
	// Port 监听端口，同时是绑定目标的默认目的端口
	Port int `json:"port"`

	// ListenAddress 接收套接字绑定的地址，默认 0.0.0.0
	ListenAddress string `json:"listen_address,omitempty"`

	// InstanceTag 固定实例标记，为空时启动时随机生成
	InstanceTag string `json:"instance_tag,omitempty"`

	// Interfaces 接口绑定列表
	Interfaces []InterfaceConfig `json:"interfaces"`

	// Access 访问控制
	Access AccessConfig `json:"access"`

	// DSCP 发送报文的 DSCP 标记
	DSCP DSCP `json:"dscp"`

	// Rules M-SEARCH 路由规则，按顺序匹配
	Rules []RuleConfig `json:"rules"`

	// Proxy 代答配置
	Proxy ProxyConfig `json:"proxy"`

	// Dial 主动拨测配置
	Dial DialConfig `json:"dial"`

	// Relay 中继核心配置
	Relay RelayConfig `json:"relay"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
//
// 默认配置不含任何接口，需要调用方补充后才能通过 Validate。
func NewConfig() *Config {
	return &Config{
		Port:          DefaultPort,
		ListenAddress: "0.0.0.0",
		Interfaces:    []InterfaceConfig{},
		Access:        DefaultAccessConfig(),
		Rules:         []RuleConfig{},
		Proxy:         DefaultProxyConfig(),
		Dial:          DefaultDialConfig(),
		Relay:         DefaultRelayConfig(),
		Metrics:       DefaultMetricsConfig(),
		Log:           DefaultLogConfig(),
	}
}

// FromJSON 从 JSON 解析配置，未出现的字段保留默认值
//
// 未知字段视为配置错误，避免拼写错误被静默忽略。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, &types.ConfigError{Err: fmt.Errorf("parse json: %w", err)}
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Validate 验证整个配置的有效性
//
// 返回的错误均为 *types.ConfigError。
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return types.NewConfigError("port", "must be in 1..65535, got %d", c.Port)
	}
	if c.ListenAddress != "" {
		addr, err := netip.ParseAddr(c.ListenAddress)
		if err != nil || !addr.Unmap().Is4() {
			return types.NewConfigError("listen_address", "invalid IPv4 address %q", c.ListenAddress)
		}
	}
	if c.InstanceTag != "" {
		if _, err := types.ParseInstanceTag(c.InstanceTag); err != nil {
			return &types.ConfigError{Field: "instance_tag", Err: err}
		}
	}
	if err := c.validateInterfaces(); err != nil {
		return err
	}
	if err := c.Access.Validate(); err != nil {
		return err
	}
	if err := c.validateRules(); err != nil {
		return err
	}
	if err := c.Proxy.Validate(); err != nil {
		return err
	}
	if err := c.Dial.Validate(); err != nil {
		return err
	}
	if err := c.Relay.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

// Interface 按名字查找接口配置
func (c *Config) Interface(name string) (InterfaceConfig, bool) {
	for _, ic := range c.Interfaces {
		if ic.Name == name {
			return ic, true
		}
	}
	return InterfaceConfig{}, false
}

// ListenAddr 返回接收绑定地址，未设置时为 0.0.0.0
func (c *Config) ListenAddr() netip.Addr {
	if addr, err := netip.ParseAddr(c.ListenAddress); err == nil {
		return addr.Unmap()
	}
	return netip.IPv4Unspecified()
}
