// Package metrics 提供 Prometheus 监控指标
//
// Collector 实现 observe.Sink，按事件累计：
//   - ssdprelay_decisions_total{outcome,iface}  按结果统计的事件
//   - ssdprelay_rejected_total{reason}          访问控制拒绝原因
//   - ssdprelay_rule_hits_total{rule,action}    规则命中
//   - ssdprelay_send_failures_total{target}     发送失败目标
//
// 接口绑定计数在抓取时从 BindingSource 读取：
//   - ssdprelay_binding_received_total{iface}
//   - ssdprelay_binding_sent_total{iface}
//   - ssdprelay_binding_send_errors_total{iface}
//   - ssdprelay_binding_degraded{iface}
//
// Server 在 metrics.listen 配置时提供 HTTP 端点：
//
//	GET /metrics   Prometheus 文本格式
//	GET /health    存活检查
package metrics
