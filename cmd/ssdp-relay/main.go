// Package main 提供 ssdp-relay 命令行入口
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	ssdprelay "github.com/dep2p/go-ssdprelay"
	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/dispatch"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("cmd")

// interfaceResolver 解析接口名及其 IPv4 地址
var interfaceResolver = socket.ResolveInterface

// 退出码
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, defaultGetenv))
}

// execute 运行命令并返回退出码
func execute(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	cmd := newRootCmd(getenv)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode 配置错误返回 2，其余错误返回 1
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *types.ConfigError
	if errors.As(err, &ce) {
		return exitConfigError
	}
	return exitFailure
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "ssdp-relay",
		Short: "SSDP multicast relay between network interfaces",
		Long: `ssdp-relay forwards SSDP (UPnP discovery) traffic on 239.255.255.250:1900
between interfaces, so clients on one segment can discover devices on another.
M-SEARCH requests are routed by ordered rules: block, forward, proxy or dial.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRelay(cmd, flags, getenv)
		},
	}
	flags.register(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the relay until SIGINT/SIGTERM (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runRelay(cmd, flags, getenv)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration, then print a summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return validateConfig(cmd, flags, getenv)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), ssdprelay.VersionInfo())
			},
		},
	)
	return root
}

// runRelay 构建中继并运行到收到退出信号
func runRelay(cmd *cobra.Command, flags *cliFlags, getenv func(string) string) error {
	cfg, err := flags.buildConfig(cmd, getenv)
	if err != nil {
		return err
	}

	r, err := ssdprelay.New(
		ssdprelay.WithConfig(cfg),
		ssdprelay.WithVerboseFx(flags.verboseFx),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("启动 ssdp-relay", "version", ssdprelay.Version, "commit", ssdprelay.GitCommit, "tag", r.Tag().ShortString())
	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	<-ctx.Done()
	log.Info("收到退出信号，正在关闭")

	if err := r.Stop(context.Background()); err != nil {
		return fmt.Errorf("关闭失败: %w", err)
	}
	st := r.Stats()
	log.Info("ssdp-relay 已退出", "received", st.Received, "dropped_events", st.DroppedEvents)
	return nil
}

// validateConfig 验证配置并输出编译后的摘要
func validateConfig(cmd *cobra.Command, flags *cliFlags, getenv func(string) string) error {
	cfg, err := flags.buildConfig(cmd, getenv)
	if err != nil {
		return err
	}
	d, err := dispatch.Compile(cfg.Rules)
	if err != nil {
		return err
	}
	addrs, err := resolveInterfaces(cfg)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), cfg, d, addrs)
	return nil
}

// resolveInterfaces 解析每个配置的接口，与 run 打开绑定时使用同一解析器
func resolveInterfaces(cfg *config.Config) (map[string]netip.Addr, error) {
	addrs := make(map[string]netip.Addr, len(cfg.Interfaces))
	var errs error
	for _, ic := range cfg.Interfaces {
		_, addr, err := interfaceResolver(ic.Name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		addrs[ic.Name] = addr
	}
	return addrs, errs
}

func printSummary(w io.Writer, cfg *config.Config, d *dispatch.Dispatcher, addrs map[string]netip.Addr) {
	fmt.Fprintf(w, "配置有效\n")
	fmt.Fprintf(w, "  端口:       %d\n", cfg.Port)
	fmt.Fprintf(w, "  DSCP:       %s\n", cfg.DSCP)
	fmt.Fprintf(w, "  自环过滤:   %t\n", cfg.Access.BlockSelf)
	if len(cfg.Access.BlockCIDRs) > 0 {
		fmt.Fprintf(w, "  阻止网段:   %s\n", strings.Join(cfg.Access.BlockCIDRs, ", "))
	}
	if len(cfg.Access.AllowCIDRs) > 0 {
		fmt.Fprintf(w, "  允许网段:   %s\n", strings.Join(cfg.Access.AllowCIDRs, ", "))
	}

	fmt.Fprintf(w, "  接口:\n")
	for _, ic := range cfg.Interfaces {
		fmt.Fprintf(w, "    - %s %s %s\n", ic.Name, direction(ic), addrs[ic.Name])
	}

	fmt.Fprintf(w, "  规则:\n")
	for _, r := range d.Rules() {
		fmt.Fprintf(w, "    %s\n", r)
	}
	fmt.Fprintf(w, "    %s\n", d.Default())
}

func direction(ic config.InterfaceConfig) string {
	switch {
	case ic.Receive && ic.Transmit:
		return "rxtx"
	case ic.Receive:
		return "rx"
	default:
		return "tx"
	}
}
