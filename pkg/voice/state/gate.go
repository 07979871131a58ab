package state

import (
	"sync"
	"time"
)

// DefaultCooldown 两次生成之间的最小间隔
const DefaultCooldown = 2000 * time.Millisecond

// Decision 门控判定结果
type Decision int

const (
	Accepted Decision = iota
	RejectedBusy
	RejectedCooldown
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case RejectedBusy:
		return "busy"
	case RejectedCooldown:
		return "cooldown"
	}
	return "unknown"
}

// GateState 门控状态快照
type GateState struct {
	Busy           bool
	LastInvocation time.Time
}

// Gate 单飞 + 冷却门控：同一时刻最多一个生成周期，两次开始之间至少间隔 cooldown。
// 被拒绝的话语直接丢弃，不排队。
type Gate struct {
	mu       sync.Mutex
	busy     bool
	last     time.Time
	cooldown time.Duration
}

// NewGate 创建门控，cooldown<=0 时使用 DefaultCooldown
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{cooldown: cooldown}
}

// Admit 尝试占用门控。接受时返回 release，调用方必须在周期结束时调用（可重复调用）。
func (g *Gate) Admit(now time.Time) (func(), Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return nil, RejectedBusy
	}
	if !g.last.IsZero() && now.Sub(g.last) < g.cooldown {
		return nil, RejectedCooldown
	}
	g.busy = true
	g.last = now

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.busy = false
			g.mu.Unlock()
		})
	}, Accepted
}

// Snapshot 返回当前状态
func (g *Gate) Snapshot() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateState{Busy: g.busy, LastInvocation: g.last}
}

// Cooldown 冷却时长
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
