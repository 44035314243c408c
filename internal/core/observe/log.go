package observe

import (
	"log/slog"

	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("observe")

// LogSink 以结构化日志输出事件
//
// 发送失败输出 Warn，其余输出 Debug。
type LogSink struct {
	l *slog.Logger
}

// NewLogSink 创建日志 Sink，l 为 nil 时使用 observe 子系统日志
func NewLogSink(l *slog.Logger) *LogSink {
	if l == nil {
		l = log
	}
	return &LogSink{l: l}
}

// Observe 实现 Sink
func (s *LogSink) Observe(e Event) {
	attrs := []any{
		"outcome", string(e.Outcome),
		"iface", e.Interface,
		"src", e.Src,
		"ttl", e.TTL,
	}
	if e.Rule != "" {
		attrs = append(attrs, "rule", e.Rule, "action", e.Action.String())
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason.String())
	}
	if e.Target != "" {
		attrs = append(attrs, "target", e.Target)
	}
	if !e.Tag.IsEmpty() {
		attrs = append(attrs, "tag", e.Tag.ShortString())
	}

	switch e.Outcome {
	case types.OutcomeSendFailed, types.OutcomeNoResponse:
		if e.Err != nil {
			attrs = append(attrs, "err", e.Err)
		}
		s.l.Warn("报文处理失败", attrs...)
	default:
		s.l.Debug("报文处理", attrs...)
	}
}
