package bridge

import (
	"log/slog"
	"sync"

	"github.com/chatvault/backend/internal/infrastructure/log"
)

// Consumer 信封消费者
type Consumer func(env *Envelope)

// Relay 进程内投递中继
// 实现就绪握手协议：消费者调用 SetReady 之前，所有信封按到达顺序
// 在内存中排队；就绪后整队按序冲刷，之后切换为直接投递。
// 该协议防止消费者初始化完成前的早期观测丢失。
type Relay struct {
	mu       sync.Mutex
	ready    bool
	pending  []*Envelope
	consumer Consumer
	nextSeq  uint64
	source   string
	logger   *slog.Logger
}

var (
	installMu      sync.Mutex
	installedRelay *Relay
)

// Install 安装进程级中继（幂等）
// 重复调用返回同一实例，对应拦截脚本防止重复打补丁的全局标记
func Install(source string) *Relay {
	installMu.Lock()
	defer installMu.Unlock()

	if installedRelay != nil {
		return installedRelay
	}
	installedRelay = NewRelay(source)
	return installedRelay
}

// NewRelay 创建独立中继实例（测试与多通道场景使用）
func NewRelay(source string) *Relay {
	return &Relay{
		source: source,
		logger: log.NewModuleLogger("bridge", "relay"),
	}
}

// Source 返回中继的来源标记
func (r *Relay) Source() string {
	return r.source
}

// Publish 投递信封
// Seq 为零时分配本地序列号（本地生产者）；
// 消费者未就绪时入队，否则立即投递。
// 投递在锁内完成，保证并发生产者之间的全局投递顺序
func (r *Relay) Publish(env *Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if env.Source == "" {
		env.Source = r.source
	}
	if env.Seq == 0 {
		r.nextSeq++
		env.Seq = r.nextSeq
	}

	if !r.ready {
		r.pending = append(r.pending, env)
		return
	}

	r.consumer(env)
}

// SetReady 标记消费者就绪
// 先按入队顺序冲刷全部积压信封，再切换为直接投递
func (r *Relay) SetReady(consumer Consumer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		return
	}
	r.consumer = consumer
	r.ready = true

	if len(r.pending) > 0 {
		r.logger.Info("flushing queued envelopes",
			"count", len(r.pending),
		)
	}
	for _, env := range r.pending {
		consumer(env)
	}
	r.pending = nil
}

// PendingCount 返回当前积压数量（监控用）
func (r *Relay) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
