package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dep2p/go-ssdprelay/internal/core/observe"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// Namespace 指标命名空间
const Namespace = "ssdprelay"

// BindingSource 提供接口绑定计数快照
type BindingSource interface {
	BindingStats() []socket.BindingStats
}

// ============================================================================
//                              Collector - 事件指标
// ============================================================================

// Collector 将观测事件累计为 Prometheus 计数器
type Collector struct {
	registry *prometheus.Registry

	decisions    *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	ruleHits     *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
}

// 确保 Collector 实现 observe.Sink
var _ observe.Sink = (*Collector)(nil)

// NewCollector 创建指标收集器并注册到独立的 Registry
//
// bindings 为 nil 时不导出绑定计数。
func NewCollector(bindings BindingSource) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decisions_total",
			Help:      "Relay events by outcome and receiving interface.",
		}, []string{"outcome", "iface"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rejected_total",
			Help:      "Packets rejected by the access filter, by reason.",
		}, []string{"reason"}),
		ruleHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rule_hits_total",
			Help:      "Dispatcher rule matches.",
		}, []string{"rule", "action"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_failures_total",
			Help:      "Failed sends by target.",
		}, []string{"target"}),
	}

	c.registry.MustRegister(
		c.decisions,
		c.rejected,
		c.ruleHits,
		c.sendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if bindings != nil {
		c.registry.MustRegister(newBindingCollector(bindings))
	}
	return c
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe 实现 observe.Sink
func (c *Collector) Observe(e observe.Event) {
	c.decisions.WithLabelValues(string(e.Outcome), e.Interface).Inc()

	switch e.Outcome {
	case types.OutcomeRejected:
		c.rejected.WithLabelValues(e.Reason.String()).Inc()
		return
	case types.OutcomeSendFailed:
		// 发送失败是附加事件，规则命中已由该报文的决策事件计入
		c.sendFailures.WithLabelValues(e.Target).Inc()
		return
	}

	if e.Rule != "" {
		c.ruleHits.WithLabelValues(e.Rule, e.Action.String()).Inc()
	}
}

// ============================================================================
//                              bindingCollector - 绑定计数
// ============================================================================

type bindingCollector struct {
	source BindingSource

	received   *prometheus.Desc
	replies    *prometheus.Desc
	sent       *prometheus.Desc
	sendErrors *prometheus.Desc
	degraded   *prometheus.Desc
}

func newBindingCollector(source BindingSource) *bindingCollector {
	labels := []string{"iface"}
	return &bindingCollector{
		source: source,
		received: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "binding", "received_total"),
			"Datagrams received on the binding.", labels, nil),
		replies: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "binding", "replies_total"),
			"Unicast datagrams received on the binding's transmit socket.", labels, nil),
		sent: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "binding", "sent_total"),
			"Datagrams sent through the binding.", labels, nil),
		sendErrors: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "binding", "send_errors_total"),
			"Failed sends on the binding.", labels, nil),
		degraded: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "binding", "degraded"),
			"1 when the binding's read loop stopped on a fatal error.", labels, nil),
	}
}

// Describe 实现 prometheus.Collector
func (bc *bindingCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- bc.received
	ch <- bc.replies
	ch <- bc.sent
	ch <- bc.sendErrors
	ch <- bc.degraded
}

// Collect 实现 prometheus.Collector
func (bc *bindingCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range bc.source.BindingStats() {
		degraded := 0.0
		if st.Degraded {
			degraded = 1
		}
		ch <- prometheus.MustNewConstMetric(bc.received, prometheus.CounterValue, float64(st.Received), st.Name)
		ch <- prometheus.MustNewConstMetric(bc.replies, prometheus.CounterValue, float64(st.Replies), st.Name)
		ch <- prometheus.MustNewConstMetric(bc.sent, prometheus.CounterValue, float64(st.Sent), st.Name)
		ch <- prometheus.MustNewConstMetric(bc.sendErrors, prometheus.CounterValue, float64(st.SendErrors), st.Name)
		ch <- prometheus.MustNewConstMetric(bc.degraded, prometheus.GaugeValue, degraded, st.Name)
	}
}
