package bridge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 就绪信号之前投递的信封必须全部保留，并在就绪时按生产顺序冲刷
func TestRelay_QueueAndFlushOrdering(t *testing.T) {
	relay := NewRelay("test-source")

	for i := 1; i <= 20; i++ {
		relay.Publish(&Envelope{Kind: KindNetwork, URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	assert.Equal(t, 20, relay.PendingCount())

	var received []*Envelope
	relay.SetReady(func(env *Envelope) {
		received = append(received, env)
	})

	require.Len(t, received, 20, "就绪前的信封不得丢失")
	for i, env := range received {
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i+1), env.URL)
		assert.Equal(t, uint64(i+1), env.Seq)
	}
	assert.Equal(t, 0, relay.PendingCount())
}

// 就绪后的投递绕过队列直接到达消费者
func TestRelay_DirectDeliveryAfterReady(t *testing.T) {
	relay := NewRelay("test-source")

	var received []*Envelope
	relay.SetReady(func(env *Envelope) {
		received = append(received, env)
	})

	relay.Publish(&Envelope{Kind: KindNavigation, URL: "https://claude.ai/chat/u1"})
	require.Len(t, received, 1)
	assert.Equal(t, KindNavigation, received[0].Kind)
	assert.Equal(t, "test-source", received[0].Source)
}

// 预先分配的序列号（桥接信封）原样保留
func TestRelay_PreservesBridgeSeq(t *testing.T) {
	relay := NewRelay("test-source")

	var received []*Envelope
	relay.SetReady(func(env *Envelope) {
		received = append(received, env)
	})

	relay.Publish(&Envelope{Seq: 42, Kind: KindNetwork})
	require.Len(t, received, 1)
	assert.Equal(t, uint64(42), received[0].Seq)
}

// SetReady 幂等：第二个消费者不得抢占
func TestRelay_SetReadyIdempotent(t *testing.T) {
	relay := NewRelay("test-source")

	var first, second int
	relay.SetReady(func(env *Envelope) { first++ })
	relay.SetReady(func(env *Envelope) { second++ })

	relay.Publish(&Envelope{Kind: KindNetwork})
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

// Install 幂等：重复安装返回同一实例
func TestInstall_Idempotent(t *testing.T) {
	a := Install("install-source")
	b := Install("other-source")
	assert.Same(t, a, b)
}
