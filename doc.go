// Package ssdprelay 实现 SSDP（UPnP 发现）组播中继
//
// 中继在多个网络接口之间转发 239.255.255.250:1900 上的 SSDP 报文，
// 使一个网段中的 UPnP 客户端能发现另一个网段中的设备。
//
// # 快速开始
//
//	cfg := config.NewConfig()
//	cfg.Interfaces = []config.InterfaceConfig{
//	    {Name: "eth0", Receive: true, Transmit: true},
//	    {Name: "wg0", Receive: true, Transmit: true},
//	}
//	cfg.Rules = []config.RuleConfig{
//	    {Match: config.MatchConfig{Interface: "wg0"}, Action: types.ActionForward, Targets: []string{"eth0"}},
//	}
//
//	r, err := ssdprelay.New(ssdprelay.WithConfig(cfg))
//	if err != nil {
//	    return err
//	}
//	return r.Run(ctx)
//
// # 处理流水线
//
// 每个接收绑定有一个读循环，收到的报文依次经过：
//
//	┌──────────┐   ┌──────────┐   ┌──────────┐   ┌─────────────────────────┐
//	│ 跳数计算 │ → │ 访问控制 │ → │ 规则分类 │ → │ block/forward/proxy/dial │
//	└──────────┘   └──────────┘   └──────────┘   └─────────────────────────┘
//
// 每个决定都会产生一个观测事件，交给日志与 Prometheus 指标。
//
// # 自身环路
//
// 中继发出的报文携带 X-Relay-Instance 头，并记录本机发送套接字地址；
// 打开 BlockSelf 时带有本实例标记或来自这些地址的报文会被丢弃，
// 避免多个接口之间形成转发风暴。
//
// # 组件
//
//   - config: 配置加载、环境变量覆盖与验证
//   - internal/core/socket: 组播套接字与接口绑定
//   - internal/core/access: 源地址访问控制
//   - internal/core/dispatch: M-SEARCH 路由规则
//   - internal/core/proxy: 代答响应
//   - internal/core/relay: 读循环与动作执行
//   - internal/core/observe / metrics: 观测事件与指标
package ssdprelay
