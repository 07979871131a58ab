// Package memory 会话的有界对话记录
package memory

import "sync"

// DefaultMaxTurns 每个会话保留的轮数
const DefaultMaxTurns = 20

// Turn 一轮完整的问答
type Turn struct {
	Human     string `json:"human"`
	Assistant string `json:"assistant"`
}

// Memory 按 max 限长的 FIFO，满了先淘汰最早的一轮
type Memory struct {
	mu    sync.RWMutex
	turns []Turn
	max   int
}

// New 创建对话记录，max <= 0 时用 DefaultMaxTurns
func New(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxTurns
	}
	return &Memory{turns: make([]Turn, 0, max), max: max}
}

// Append 追加一轮
func (m *Memory) Append(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.turns) >= m.max {
		copy(m.turns, m.turns[1:])
		m.turns = m.turns[:len(m.turns)-1]
	}
	m.turns = append(m.turns, t)
}

// Snapshot 返回副本，最早的在前
func (m *Memory) Snapshot() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Clear 清空记录
func (m *Memory) Clear() {
	m.mu.Lock()
	m.turns = m.turns[:0]
	m.mu.Unlock()
}

// Len 当前轮数
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Cap 最大轮数
func (m *Memory) Cap() int {
	return m.max
}
