package voice

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/memory"
	"github.com/code-100-precent/maitri/pkg/metrics"
	"github.com/code-100-precent/maitri/pkg/recognizer"
	"github.com/code-100-precent/maitri/pkg/voice/message"
	"github.com/code-100-precent/maitri/pkg/voice/state"
	"github.com/code-100-precent/maitri/pkg/voice/transcript"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const serviceName = "Session"

// SessionState 会话生命周期状态
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn 会话使用的双工连接，*websocket.Conn 满足该接口
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SessionConfig 会话配置
type SessionConfig struct {
	ID          string
	Conn        Conn
	Transcriber recognizer.TranscribeService
	Generator   message.Generator
	Speaker     message.Speaker
	Cooldown    time.Duration
	MaxTurns    int
	EventBuffer int
	// Clock 门控使用的时钟，默认 time.Now
	Clock   func() time.Time
	Logger  *zap.Logger
	Context context.Context
	// OnClose 会话进入 Closed 后调用一次
	OnClose func(*Session)
}

// Session 语音会话：一个客户端连接对应一个识别连接、一个门控和一份记忆
type Session struct {
	config       *SessionConfig
	ctx          context.Context
	cancel       context.CancelFunc
	state        atomic.Int32
	gate         *state.Gate
	memory       *memory.Memory
	events       chan transcript.Event
	writer       *message.Writer
	processor    *message.Processor
	errorHandler *errhandler.Handler
	logger       *zap.Logger
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewSession 创建新的语音会话，状态为 Connecting
func NewSession(config *SessionConfig) (*Session, error) {
	if config == nil {
		return nil, errhandler.NewValidationError(serviceName, "配置不能为空")
	}
	if config.Conn == nil {
		return nil, errhandler.NewValidationError(serviceName, "WebSocket连接不能为空")
	}
	if config.Transcriber == nil || config.Generator == nil || config.Speaker == nil {
		return nil, errhandler.NewValidationError(serviceName, "识别、生成与合成服务不能为空")
	}
	if config.Logger == nil {
		config.Logger = zap.L()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}

	logger := config.Logger.With(zap.String("session", config.ID))
	ctx, cancel := context.WithCancel(config.Context)
	errorHandler := errhandler.NewHandler(logger)
	mem := memory.New(config.MaxTurns)
	writer := message.NewWriter(config.Conn, logger)

	s := &Session{
		config:       config,
		ctx:          ctx,
		cancel:       cancel,
		gate:         state.NewGate(config.Cooldown),
		memory:       mem,
		events:       make(chan transcript.Event, config.EventBuffer),
		writer:       writer,
		processor:    message.NewProcessor(config.Generator, config.Speaker, mem, writer, errorHandler, logger),
		errorHandler: errorHandler,
		logger:       logger,
	}
	s.state.Store(int32(StateConnecting))
	metrics.VoiceSessionsActive.Inc()
	config.Transcriber.Init(s.onTranscript, s.onRecognizerError)
	return s, nil
}

// Run 运行会话直到客户端断开或识别连接失败，返回时会话已 Closed
func (s *Session) Run() {
	s.wg.Add(2)
	go s.connect()
	go s.pipeline()

	s.readLoop()
	s.Close()
	s.wg.Wait()
}

// connect 建立识别连接，成功后进入 Open
func (s *Session) connect() {
	defer s.wg.Done()

	if err := s.config.Transcriber.ConnAndReceive(s.ctx); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		connErr := errhandler.NewConnectionError("ASR", "连接识别服务失败", err)
		metrics.PipelineErrors.WithLabelValues(string(connErr.Kind)).Inc()
		s.errorHandler.HandleError(connErr, serviceName)
		s.Close()
		return
	}
	if s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		s.logger.Info("voice session open")
	}
}

// pipeline 识别事件 → 话语 → 门控 → 处理
func (s *Session) pipeline() {
	defer s.wg.Done()

	for u, at := range transcript.Arrivals(transcript.FromChannel(s.ctx, s.events)) {
		release, decision := s.gate.Admit(at)
		metrics.Utterances.WithLabelValues(decision.String()).Inc()
		if decision != state.Accepted {
			s.logger.Debug("utterance dropped", zap.String("reason", decision.String()))
			continue
		}
		s.logger.Debug("utterance accepted", zap.String("text", string(u)))
		go s.processor.Process(s.ctx, u, release)
	}
}

// readLoop 读取客户端帧：二进制帧为音频，其余忽略
func (s *Session) readLoop() {
	for {
		messageType, data, err := s.config.Conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug("WebSocket连接正常关闭", zap.Error(err))
			} else if s.State() < StateClosing {
				s.logger.Debug("读取WebSocket消息失败", zap.Error(err))
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if err := s.HandleAudio(data); err != nil {
			s.logger.Warn("转发音频失败", zap.Error(err))
		}
	}
}

// HandleAudio 转发音频到识别服务，未进入 Open 时静默丢弃
func (s *Session) HandleAudio(data []byte) error {
	if s.State() != StateOpen || len(data) == 0 {
		return nil
	}
	return s.config.Transcriber.SendAudioBytes(data)
}

func (s *Session) onTranscript(text string, isFinal bool) {
	select {
	case <-s.ctx.Done():
	case s.events <- transcript.Event{Text: text, IsFinal: isFinal, At: s.config.Clock()}:
	}
}

func (s *Session) onRecognizerError(err error, isFatal bool) {
	if s.ctx.Err() != nil {
		return
	}
	if !isFatal {
		s.errorHandler.HandleError(err, "ASR")
		return
	}
	connErr := errhandler.NewConnectionError("ASR", "识别连接中断", err)
	metrics.PipelineErrors.WithLabelValues(string(connErr.Kind)).Inc()
	s.errorHandler.HandleError(connErr, serviceName)
	go s.Close()
}

// Close 关闭会话：通知识别服务结束、放弃进行中的生成、释放连接。可重复调用。
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		s.processor.Stop()

		if s.config.Transcriber.Activity() {
			if err := s.config.Transcriber.SendEnd(); err != nil {
				s.logger.Debug("结束识别流失败", zap.Error(err))
			}
		}
		s.cancel()
		if err := s.config.Transcriber.StopConn(); err != nil {
			s.logger.Debug("关闭识别连接失败", zap.Error(err))
		}
		s.writer.Close()
		s.config.Conn.Close()

		s.state.Store(int32(StateClosed))
		metrics.VoiceSessionsActive.Dec()
		s.logger.Info("voice session closed", zap.Int("turns", s.memory.Len()))
		if s.config.OnClose != nil {
			s.config.OnClose(s)
		}
	})
	return nil
}

// ID 会话标识
func (s *Session) ID() string {
	return s.config.ID
}

// State 当前状态
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Memory 会话记忆
func (s *Session) Memory() *memory.Memory {
	return s.memory
}

// GateState 门控状态快照
func (s *Session) GateState() state.GateState {
	return s.gate.Snapshot()
}
