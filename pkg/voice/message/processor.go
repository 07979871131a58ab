package message

import (
	"context"
	"sync"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/memory"
	"github.com/code-100-precent/maitri/pkg/metrics"
	"github.com/code-100-precent/maitri/pkg/voice/transcript"
	"github.com/code-100-precent/maitri/pkg/voice/tts"
	"go.uber.org/zap"
)

const serviceName = "Pipeline"

// Generator 回复生成
type Generator interface {
	Generate(ctx context.Context, history []memory.Turn, utterance string) (string, error)
}

// Speaker 语音合成并发送
type Speaker interface {
	Deliver(ctx context.Context, sink tts.AudioSink, text string) error
}

// Processor 单个会话的话语处理器：生成 → 记忆 → 合成
type Processor struct {
	generator    Generator
	speaker      Speaker
	memory       *memory.Memory
	sink         tts.AudioSink
	errorHandler *errhandler.Handler
	logger       *zap.Logger
	mu           sync.Mutex
	stopped      bool
}

// NewProcessor 创建消息处理器
func NewProcessor(
	generator Generator,
	speaker Speaker,
	mem *memory.Memory,
	sink tts.AudioSink,
	errorHandler *errhandler.Handler,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errorHandler == nil {
		errorHandler = errhandler.NewHandler(logger)
	}
	return &Processor{
		generator:    generator,
		speaker:      speaker,
		memory:       mem,
		sink:         sink,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Process 处理一个已被门控接受的话语。release 在返回前必定被调用一次。
// 生成失败时不写记忆也不发送音频；会话关闭后到达的结果被丢弃。
func (p *Processor) Process(ctx context.Context, u transcript.Utterance, release func()) {
	if release != nil {
		defer release()
	}

	text := string(u)
	reply, err := p.generator.Generate(ctx, p.memory.Snapshot(), text)
	if err != nil {
		p.report(ctx, err)
		return
	}

	if !p.commit(ctx, text, reply) {
		p.logger.Debug("session closed, discarding reply")
		return
	}

	if err := p.speaker.Deliver(ctx, p.sink, reply); err != nil {
		p.report(ctx, err)
	}
}

// commit 追加一轮对话，会话已停止时返回 false
func (p *Processor) commit(ctx context.Context, human, assistant string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || ctx.Err() != nil {
		return false
	}
	p.memory.Append(memory.Turn{Human: human, Assistant: assistant})
	return true
}

func (p *Processor) report(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	metrics.PipelineErrors.WithLabelValues(string(errhandler.KindOf(err))).Inc()
	p.errorHandler.HandleError(err, serviceName)
}

// Stop 停止处理器，之后完成的生成结果不再写入记忆
func (p *Processor) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
