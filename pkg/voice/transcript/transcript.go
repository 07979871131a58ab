// Package transcript 把识别结果流整理成话语
package transcript

import (
	"context"
	"iter"
	"strings"
	"time"
)

// Event 一条识别结果，中间结果之后可能被修正，最终结果不会
type Event struct {
	Text    string
	IsFinal bool
	// At 结果到达会话的时间，门控按它计算冷却窗口
	At time.Time
}

// Utterance 最终结果去掉首尾空白后的非空文本
type Utterance string

// Utterances 按顺序为每个非空最终结果产出一句话，中间结果和空白结果丢弃
func Utterances(events iter.Seq[Event]) iter.Seq[Utterance] {
	return func(yield func(Utterance) bool) {
		for u := range Arrivals(events) {
			if !yield(u) {
				return
			}
		}
	}
}

// Arrivals 同 Utterances，同时带出每句话的到达时间
func Arrivals(events iter.Seq[Event]) iter.Seq2[Utterance, time.Time] {
	return func(yield func(Utterance, time.Time) bool) {
		for ev := range events {
			if u, ok := FromEvent(ev); ok {
				if !yield(u, ev.At) {
					return
				}
			}
		}
	}
}

// FromEvent ev 能否产出话语
func FromEvent(ev Event) (Utterance, bool) {
	if !ev.IsFinal {
		return "", false
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return "", false
	}
	return Utterance(text), true
}

// FromChannel 从 ch 读取事件，直到 ch 关闭或 ctx 结束
func FromChannel(ctx context.Context, ch <-chan Event) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok || !yield(ev) {
					return
				}
			}
		}
	}
}
