package relay

import (
	"time"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Config 中继核心配置
type Config struct {
	// Port 绑定目标的目的端口
	Port uint16

	// HopLimit 接收报文的初始跳数上限
	HopLimit int

	// UseIPTTL 对带实例标记的报文以 IP TTL 与 HopLimit 的较小值作为跳数
	UseIPTTL bool

	// DrainTimeout 停止时等待读循环退出的最长时间
	DrainTimeout time.Duration

	// ReplyWindow 请求方等待单播响应的时长，0 表示不回送响应
	ReplyWindow time.Duration
	PendingSize int

	// Dial 参数
	DialTTL      int
	DialMX       int
	DialST       string
	DialRate     float64
	DialBurst    int
	DedupeWindow time.Duration
	DedupeSize   int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.NewConfig())
}

// ConfigFromUnified 从统一配置创建中继核心配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		Port:         uint16(cfg.Port),
		HopLimit:     cfg.Relay.HopLimit,
		UseIPTTL:     cfg.Relay.UseIPTTL,
		DrainTimeout: cfg.Relay.DrainTimeout.Std(),
		ReplyWindow:  cfg.Relay.ReplyWindow.Std(),
		PendingSize:  cfg.Relay.PendingSize,
		DialTTL:      cfg.Dial.TTL,
		DialMX:       cfg.Dial.MX,
		DialST:       cfg.Dial.ST,
		DialRate:     cfg.Dial.Rate,
		DialBurst:    cfg.Dial.Burst,
		DedupeWindow: cfg.Dial.DedupeWindow.Std(),
		DedupeSize:   cfg.Dial.DedupeSize,
	}
}

func (c *Config) normalize() {
	if c.Port == 0 {
		c.Port = config.DefaultPort
	}
	if c.HopLimit <= 0 {
		c.HopLimit = types.DefaultTTL
	}
	if c.DialTTL <= 0 {
		c.DialTTL = types.DefaultTTL
	}
	if c.DialMX <= 0 {
		c.DialMX = 2
	}
	if c.DialST == "" {
		c.DialST = "ssdp:all"
	}
	if c.DialBurst <= 0 {
		c.DialBurst = 1
	}
	if c.DedupeSize <= 0 {
		c.DedupeSize = 1024
	}
	if c.PendingSize <= 0 {
		c.PendingSize = 256
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
}
