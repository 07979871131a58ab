package message

import (
	"context"
	"errors"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// WriterBufferSize 消息写入器缓冲区大小
	WriterBufferSize = 100

	// MessageTypeTTSEnd 一段回复音频发送完毕
	MessageTypeTTSEnd = "tts_end"
)

// ErrWriterClosed 写入器已关闭
var ErrWriterClosed = errors.New("message writer closed")

// Conn 写入器需要的连接能力
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

type frame struct {
	messageType int
	data        []byte
}

// Writer 单一有序写入器：所有出站帧经同一个队列按入队顺序写出
type Writer struct {
	conn      Conn
	logger    *zap.Logger
	frames    chan frame
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWriter 创建消息写入器
func NewWriter(conn Conn, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		conn:   conn,
		logger: logger,
		frames: make(chan frame, WriterBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	w.wg.Add(1)
	go w.writeLoop()

	return w
}

// Close 关闭写入器，队列中未写出的帧被丢弃
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.wg.Wait()
	})
	return nil
}

// writeLoop 写入循环
func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case f := <-w.frames:
			if err := w.conn.WriteMessage(f.messageType, f.data); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					w.logger.Debug("WebSocket连接已关闭，停止写入", zap.Error(err))
				} else {
					w.logger.Error("写入WebSocket消息失败", zap.Error(err))
				}
				w.cancel()
				return
			}
		}
	}
}

// SendTTSAudio 发送TTS音频数据（二进制帧）
func (w *Writer) SendTTSAudio(ctx context.Context, data []byte) error {
	return w.enqueue(ctx, frame{messageType: websocket.BinaryMessage, data: data})
}

// SendTTSEnd 发送TTS结束消息
func (w *Writer) SendTTSEnd(ctx context.Context) error {
	return w.sendJSON(ctx, map[string]any{
		"type": MessageTypeTTSEnd,
	})
}

// sendJSON 发送JSON文本帧
func (w *Writer) sendJSON(ctx context.Context, data any) error {
	message, err := sonic.Marshal(data)
	if err != nil {
		w.logger.Error("序列化消息失败", zap.Error(err))
		return err
	}
	return w.enqueue(ctx, frame{messageType: websocket.TextMessage, data: message})
}

// enqueue 入队，队列满时等待，不丢弃
func (w *Writer) enqueue(ctx context.Context, f frame) error {
	if w.ctx.Err() != nil {
		return ErrWriterClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ctx.Done():
		return ErrWriterClosed
	case w.frames <- f:
		return nil
	}
}
