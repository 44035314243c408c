package observe

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultBufferSize Fanout 默认队列长度
const DefaultBufferSize = 1024

// dropWarnInterval 丢弃告警的最小间隔
const dropWarnInterval = 10 * time.Second

// ============================================================================
//                              Fanout - 异步分发
// ============================================================================

// Fanout 异步将事件分发给多个 Sink
//
// Observe 从不阻塞：队列满或已停止时丢弃事件并计数。
// 事件时间为空时以注入的时钟补齐。
type Fanout struct {
	sinks []Sink
	clock clock.Clock
	ch    chan Event

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	stopped   atomic.Bool

	// mu 保证 Stop 关闭通道后不再有写入
	mu sync.RWMutex

	dropped  atomic.Uint64
	lastWarn atomic.Int64
}

// NewFanout 创建异步分发器
func NewFanout(buffer int, clk clock.Clock, sinks ...Sink) *Fanout {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	if clk == nil {
		clk = clock.New()
	}
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{
		sinks: out,
		clock: clk,
		ch:    make(chan Event, buffer),
		done:  make(chan struct{}),
	}
}

// Start 启动分发协程，重复调用无效果
func (f *Fanout) Start() {
	f.startOnce.Do(func() {
		go f.loop()
	})
}

// Stop 停止接收新事件，等待队列中的事件分发完毕
func (f *Fanout) Stop() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped.Store(true)
		close(f.ch)
		f.mu.Unlock()
	})
	// 未启动时直接排空
	f.startOnce.Do(func() {
		go f.loop()
	})
	<-f.done
}

// Observe 实现 Sink
func (f *Fanout) Observe(e Event) {
	if e.Time.IsZero() {
		e.Time = f.clock.Now()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.stopped.Load() {
		f.drop()
		return
	}
	select {
	case f.ch <- e:
	default:
		f.drop()
	}
}

// Dropped 返回丢弃的事件数
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}

func (f *Fanout) drop() {
	n := f.dropped.Add(1)
	now := f.clock.Now().UnixNano()
	last := f.lastWarn.Load()
	if now-last < int64(dropWarnInterval) && last != 0 {
		return
	}
	if f.lastWarn.CompareAndSwap(last, now) {
		log.Warn("观测队列已满，丢弃事件", "dropped", n)
	}
}

func (f *Fanout) loop() {
	defer close(f.done)
	for e := range f.ch {
		for _, s := range f.sinks {
			s.Observe(e)
		}
	}
}
