package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 配置优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（SSDPRELAY_* 前缀）
//  3. 配置文件
//  4. 默认值
//
// ═══════════════════════════════════════════════════════════════════════════

// cliFlags 命令行参数
type cliFlags struct {
	configFile string

	port       int
	interfaces []string
	blockSelf  bool
	blockCIDRs []string
	allowCIDRs []string
	dscp       string
	rules      []string

	instanceTag   string
	metricsListen string
	logLevel      string
	logFile       string
	verboseFx     bool
}

// register 注册到命令的持久参数
func (f *cliFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configFile, "config", "c", "", "配置文件路径（JSON）")

	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "SSDP 端口")
	fs.StringArrayVarP(&f.interfaces, "interface", "i", nil, "接口绑定 name[:rx|tx|rxtx]，可重复")
	fs.BoolVar(&f.blockSelf, "blockid", true, "丢弃带有本实例标记或来自本机发送地址的报文")
	fs.StringArrayVar(&f.blockCIDRs, "blockcidr", nil, "丢弃来自该网段的报文，可重复")
	fs.StringArrayVar(&f.allowCIDRs, "allowcidr", nil, "只接受来自该网段的报文，可重复")
	fs.StringVar(&f.dscp, "dscp", "", "发送报文的 DSCP（ef/af41/cs1 或 0..63）")
	fs.StringArrayVarP(&f.rules, "rule", "r", nil, "路由规则 action[@match,...][=target,...]，按顺序匹配，可重复")

	fs.StringVar(&f.instanceTag, "instance-tag", "", "固定实例标记（默认随机）")
	fs.StringVar(&f.metricsListen, "metrics-listen", "", "Prometheus 指标监听地址，如 :9190")
	fs.StringVar(&f.logLevel, "log-level", "", "日志级别 debug|info|warn|error")
	fs.StringVar(&f.logFile, "log-file", "", "日志文件路径（默认 stderr）")
	fs.BoolVar(&f.verboseFx, "verbose-fx", false, "输出依赖注入过程")
}

// buildConfig 按 文件 -> 环境变量 -> 命令行 的顺序构建并验证配置
func (f *cliFlags) buildConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := f.apply(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply 只覆盖显式设置的参数
func (f *cliFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("interface") {
		cfg.Interfaces = cfg.Interfaces[:0:0]
		for _, spec := range f.interfaces {
			ic, err := config.ParseInterfaceSpec(spec)
			if err != nil {
				return &types.ConfigError{Field: "--interface", Err: err}
			}
			cfg.Interfaces = append(cfg.Interfaces, ic)
		}
	}
	if fs.Changed("blockid") {
		cfg.Access.BlockSelf = f.blockSelf
	}
	if fs.Changed("blockcidr") {
		cfg.Access.BlockCIDRs = append([]string(nil), f.blockCIDRs...)
	}
	if fs.Changed("allowcidr") {
		cfg.Access.AllowCIDRs = append([]string(nil), f.allowCIDRs...)
	}
	if fs.Changed("dscp") {
		d, err := config.ParseDSCP(f.dscp)
		if err != nil {
			return &types.ConfigError{Field: "--dscp", Err: err}
		}
		cfg.DSCP = d
	}
	if fs.Changed("rule") {
		cfg.Rules = cfg.Rules[:0:0]
		for i, spec := range f.rules {
			rc, err := config.ParseRuleSpec(spec)
			if err != nil {
				return &types.ConfigError{Field: fmt.Sprintf("--rule[%d]", i), Err: err}
			}
			cfg.Rules = append(cfg.Rules, rc)
		}
	}
	if fs.Changed("instance-tag") {
		cfg.InstanceTag = f.instanceTag
	}
	if fs.Changed("metrics-listen") {
		cfg.Metrics.Listen = f.metricsListen
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	return nil
}

// defaultGetenv 读取进程环境变量
func defaultGetenv(name string) string {
	return os.Getenv(name)
}
